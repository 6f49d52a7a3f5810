package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandeepkv93/dusk/internal/model"
)

type KVSettingsRepository struct {
	store *KVStore
}

func NewKVSettingsRepository(store *KVStore) *KVSettingsRepository {
	return &KVSettingsRepository{store: store}
}

func (r *KVSettingsRepository) ReadSettings(_ context.Context) (model.ReminderSettings, error) {
	raw, ok, err := r.store.Get(model.SettingsKey)
	if err != nil {
		return model.DefaultReminderSettings(), err
	}
	if !ok {
		return model.DefaultReminderSettings(), nil
	}
	return decodeSettings(raw)
}

func (r *KVSettingsRepository) WriteSettings(_ context.Context, in model.ReminderSettings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return r.store.Set(model.SettingsKey, payload)
}

func (r *KVSettingsRepository) RecordFire(_ context.Context, date, target string) (bool, error) {
	if _, err := model.ParseDate(date); err != nil {
		return false, err
	}
	claimed := false
	err := r.store.Update(model.SettingsKey, func(raw []byte, ok bool) ([]byte, error) {
		current := model.DefaultReminderSettings()
		if ok {
			decoded, err := decodeSettings(raw)
			if err != nil {
				return nil, err
			}
			current = decoded
		}
		if !claimable(current, date, target) {
			return nil, nil
		}
		current.LastFiredDate = date
		claimed = true
		return json.Marshal(current)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

type KVTaskRepository struct {
	store *KVStore
}

func NewKVTaskRepository(store *KVStore) *KVTaskRepository {
	return &KVTaskRepository{store: store}
}

func (r *KVTaskRepository) ListTasks(_ context.Context) ([]model.Task, error) {
	return r.load()
}

func (r *KVTaskRepository) CreateTask(_ context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return err
	}
	tasks, err := r.load()
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == in.ID {
			return fmt.Errorf("storage: task %q already exists", in.ID)
		}
	}
	return r.save(append([]model.Task{in}, tasks...))
}

func (r *KVTaskRepository) GetTask(_ context.Context, id string) (model.Task, error) {
	tasks, err := r.load()
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, ErrNotFound
}

func (r *KVTaskRepository) UpdateTask(_ context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return err
	}
	tasks, err := r.load()
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == in.ID {
			tasks[i] = in
			return r.save(tasks)
		}
	}
	return ErrNotFound
}

func (r *KVTaskRepository) DeleteTask(_ context.Context, id string) error {
	tasks, err := r.load()
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == id {
			return r.save(append(tasks[:i], tasks[i+1:]...))
		}
	}
	return ErrNotFound
}

func (r *KVTaskRepository) ReplaceTasks(_ context.Context, tasks []model.Task) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return r.save(tasks)
}

func (r *KVTaskRepository) load() ([]model.Task, error) {
	raw, ok, err := r.store.Get(model.TasksKey)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(string(raw)) == "null" {
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("%w: tasks: %v", ErrCorrupt, err)
	}
	return tasks, nil
}

func (r *KVTaskRepository) save(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return r.store.Set(model.TasksKey, payload)
}

// decodeSettings overlays the stored record on the defaults so missing fields
// keep their default values.
func decodeSettings(raw []byte) (model.ReminderSettings, error) {
	out := model.DefaultReminderSettings()
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.DefaultReminderSettings(), fmt.Errorf("%w: settings: %v", ErrCorrupt, err)
	}
	return out.Normalize(), nil
}
