package storage

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/model"
)

const peerSyncTimeout = 3 * time.Second

// Peer is the other context. The foreground only ever pushes to it.
// targetChanged tells the peer the record carries a new target time, so any
// fire it recorded for the old one no longer applies.
type Peer interface {
	SyncSettings(ctx context.Context, in model.ReminderSettings, targetChanged bool) error
	SyncTasks(ctx context.Context, tasks []model.Task) error
}

type settingsPush struct {
	record        model.ReminderSettings
	targetChanged bool
}

// SyncedSettings is the foreground settings repository: it writes the local
// KV document and then forwards the new record to the background context
// without waiting for it. One worker sends pushes in order and only the
// latest pending record of each kind is kept.
type SyncedSettings struct {
	local  SettingsRepository
	peer   Peer
	logger *log.Logger

	mu       sync.Mutex
	settings *settingsPush
	tasks    *[]model.Task
	draining bool
	wg       sync.WaitGroup
}

func NewSyncedSettings(local SettingsRepository, peer Peer, logger *log.Logger) *SyncedSettings {
	return &SyncedSettings{local: local, peer: peer, logger: logging.OrNop(logger)}
}

func (s *SyncedSettings) ReadSettings(ctx context.Context) (model.ReminderSettings, error) {
	return s.local.ReadSettings(ctx)
}

func (s *SyncedSettings) WriteSettings(ctx context.Context, in model.ReminderSettings) error {
	previous, err := s.local.ReadSettings(ctx)
	changed := err != nil || previous.TargetTime != in.TargetTime
	if err := s.local.WriteSettings(ctx, in); err != nil {
		return err
	}
	s.queueSettings(in, changed)
	return nil
}

// RecordFire marks the fire locally and forwards the record that now holds it.
func (s *SyncedSettings) RecordFire(ctx context.Context, date, target string) (bool, error) {
	claimed, err := RecordFire(ctx, s.local, date, target)
	if err != nil || !claimed {
		return claimed, err
	}
	s.Push(ctx)
	return true, nil
}

// Reconcile adopts a fire recorded by the background context. Only a later
// lastFiredDate for the same target time is taken; a different target time
// means the foreground changed it since, and its own record wins.
func (s *SyncedSettings) Reconcile(ctx context.Context, remote model.ReminderSettings) (bool, error) {
	local, err := s.local.ReadSettings(ctx)
	if err != nil {
		s.logger.Warn("reconcile: local settings unreadable", "err", err)
	}
	if remote.TargetTime != local.TargetTime || remote.LastFiredDate <= local.LastFiredDate {
		return false, nil
	}
	local.LastFiredDate = remote.LastFiredDate
	if err := s.local.WriteSettings(ctx, local); err != nil {
		return false, err
	}
	return true, nil
}

// Push forwards the stored record as is. The foreground calls it at startup
// so an agent started later still learns the current settings.
func (s *SyncedSettings) Push(ctx context.Context) {
	current, err := s.local.ReadSettings(ctx)
	if err != nil {
		s.logger.Warn("settings unreadable, not pushed", "err", err)
		return
	}
	s.queueSettings(current, false)
}

// Flush waits until every queued push has been sent.
func (s *SyncedSettings) Flush() {
	s.wg.Wait()
}

func (s *SyncedSettings) queueSettings(in model.ReminderSettings, targetChanged bool) {
	if s.peer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings != nil && s.settings.targetChanged {
		targetChanged = true
	}
	s.settings = &settingsPush{record: in, targetChanged: targetChanged}
	s.startLocked()
}

func (s *SyncedSettings) queueTasks(tasks []model.Task) {
	if s.peer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = &tasks
	s.startLocked()
}

func (s *SyncedSettings) startLocked() {
	if s.draining {
		return
	}
	s.draining = true
	s.wg.Add(1)
	go s.drain()
}

func (s *SyncedSettings) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		settings, tasks := s.settings, s.tasks
		s.settings, s.tasks = nil, nil
		if settings == nil && tasks == nil {
			s.draining = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		if settings != nil {
			s.send("settings", func(ctx context.Context) error {
				return s.peer.SyncSettings(ctx, settings.record, settings.targetChanged)
			})
		}
		if tasks != nil {
			s.send("tasks", func(ctx context.Context) error { return s.peer.SyncTasks(ctx, *tasks) })
		}
	}
}

func (s *SyncedSettings) send(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), peerSyncTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Debug("peer sync skipped", "what", what, "err", err)
	}
}

// SyncedTasks forwards a full snapshot of the task list after each change so
// the background summary reads the same tasks the foreground shows.
type SyncedTasks struct {
	TaskRepository
	sync *SyncedSettings
}

func NewSyncedTasks(local TaskRepository, settings *SyncedSettings) *SyncedTasks {
	return &SyncedTasks{TaskRepository: local, sync: settings}
}

func (s *SyncedTasks) CreateTask(ctx context.Context, in model.Task) error {
	if err := s.TaskRepository.CreateTask(ctx, in); err != nil {
		return err
	}
	s.Push(ctx)
	return nil
}

func (s *SyncedTasks) UpdateTask(ctx context.Context, in model.Task) error {
	if err := s.TaskRepository.UpdateTask(ctx, in); err != nil {
		return err
	}
	s.Push(ctx)
	return nil
}

func (s *SyncedTasks) DeleteTask(ctx context.Context, id string) error {
	if err := s.TaskRepository.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.Push(ctx)
	return nil
}

func (s *SyncedTasks) ReplaceTasks(ctx context.Context, tasks []model.Task) error {
	if err := s.TaskRepository.ReplaceTasks(ctx, tasks); err != nil {
		return err
	}
	s.Push(ctx)
	return nil
}

// Push sends the current snapshot; callers use it at startup too.
func (s *SyncedTasks) Push(ctx context.Context) {
	tasks, err := s.TaskRepository.ListTasks(ctx)
	if err != nil {
		s.sync.logger.Warn("task snapshot unreadable", "err", err)
		return
	}
	s.sync.queueTasks(tasks)
}
