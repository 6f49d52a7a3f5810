package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/dusk/internal/model"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrCorrupt  = errors.New("storage: corrupt record")
)

// SettingsRepository is implemented once per context. ReadSettings always
// returns usable settings: defaults when the record is absent, and defaults
// plus an error when the backend is unreachable or the record is corrupt.
type SettingsRepository interface {
	ReadSettings(ctx context.Context) (model.ReminderSettings, error)
	WriteSettings(ctx context.Context, in model.ReminderSettings) error
}

type TaskSource interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

type TaskRepository interface {
	TaskSource
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ReplaceTasks(ctx context.Context, tasks []model.Task) error
}

// FireMarker records a fire as a compare-and-set: it reports false when the
// stored settings already carry date, or are disabled.
type FireMarker interface {
	MarkFired(ctx context.Context, date string) (bool, error)
}

// Store is what the background context needs from its transactional backend.
type Store interface {
	SettingsRepository
	TaskRepository
	FireMarker
	Close() error
}

// FireRecorder marks date fired only while the stored record is still
// enabled for target. A target changed in the meantime stays open.
type FireRecorder interface {
	RecordFire(ctx context.Context, date, target string) (bool, error)
}

// RecordFire uses repo's own RecordFire when it has one and otherwise applies
// the same check to a fresh read.
func RecordFire(ctx context.Context, repo SettingsRepository, date, target string) (bool, error) {
	if r, ok := repo.(FireRecorder); ok {
		return r.RecordFire(ctx, date, target)
	}
	current, err := repo.ReadSettings(ctx)
	if err != nil {
		return false, err
	}
	if !claimable(current, date, target) {
		return false, nil
	}
	current.LastFiredDate = date
	if err := repo.WriteSettings(ctx, current); err != nil {
		return false, err
	}
	return true, nil
}

func claimable(s model.ReminderSettings, date, target string) bool {
	return s.Enabled && s.TargetTime == target && !s.FiredOn(date)
}
