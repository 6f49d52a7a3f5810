package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sandeepkv93/dusk/internal/model"
)

const (
	redisKeyPrefix    = "dusk:"
	redisMaxCASTries  = 5
	redisPingDeadline = 5 * time.Second
)

// RedisRepository is an alternative background store for hosts where the
// agent keeps its state in a local redis instead of a sqlite file.
type RedisRepository struct {
	client      *redis.Client
	settingsKey string
	tasksKey    string
}

func OpenRedis(ctx context.Context, url string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisRepository(client), nil
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client:      client,
		settingsKey: redisKeyPrefix + model.SettingsKey,
		tasksKey:    redisKeyPrefix + model.TasksKey,
	}
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) ReadSettings(ctx context.Context) (model.ReminderSettings, error) {
	raw, err := r.client.Get(ctx, r.settingsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.DefaultReminderSettings(), nil
		}
		return model.DefaultReminderSettings(), err
	}
	return decodeSettings([]byte(raw))
}

func (r *RedisRepository) WriteSettings(ctx context.Context, in model.ReminderSettings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.settingsKey, payload, 0).Err()
}

func (r *RedisRepository) MarkFired(ctx context.Context, date string) (bool, error) {
	if _, err := model.ParseDate(date); err != nil {
		return false, err
	}
	for attempt := 0; attempt < redisMaxCASTries; attempt++ {
		claimed := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current := model.DefaultReminderSettings()
			raw, err := tx.Get(ctx, r.settingsKey).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if current, err = decodeSettings([]byte(raw)); err != nil {
					return err
				}
			}
			if !current.Enabled || current.FiredOn(date) {
				return nil
			}
			current.LastFiredDate = date
			payload, err := json.Marshal(current)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, r.settingsKey, payload, 0)
				return nil
			})
			if err == nil {
				claimed = true
			}
			return err
		}, r.settingsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return claimed, nil
	}
	return false, fmt.Errorf("storage: mark fired: too much contention on %s", r.settingsKey)
}

func (r *RedisRepository) CreateTask(ctx context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	ok, err := r.client.HSetNX(ctx, r.tasksKey, in.ID, payload).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("storage: task %q already exists", in.ID)
	}
	return nil
}

func (r *RedisRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	raw, err := r.client.HGet(ctx, r.tasksKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	var out model.Task
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.Task{}, fmt.Errorf("%w: task %s: %v", ErrCorrupt, id, err)
	}
	return out, nil
}

func (r *RedisRepository) UpdateTask(ctx context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return err
	}
	exists, err := r.client.HExists(ctx, r.tasksKey, in.ID).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.tasksKey, in.ID, payload).Err()
}

func (r *RedisRepository) DeleteTask(ctx context.Context, id string) error {
	n, err := r.client.HDel(ctx, r.tasksKey, id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) ListTasks(ctx context.Context) ([]model.Task, error) {
	fields, err := r.client.HGetAll(ctx, r.tasksKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(fields))
	for id, raw := range fields {
		var task model.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("%w: task %s: %v", ErrCorrupt, id, err)
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RedisRepository) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	values := make([]any, 0, len(tasks)*2)
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		payload, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, t.ID, payload)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.tasksKey)
		if len(values) > 0 {
			pipe.HSet(ctx, r.tasksKey, values...)
		}
		return nil
	})
	return err
}
