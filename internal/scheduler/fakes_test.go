package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
)

type memStore struct {
	mu          sync.Mutex
	settings    model.ReminderSettings
	tasks       []model.Task
	readErr     error
	panicOnRead bool
	writes      int
}

func newMemStore(s model.ReminderSettings, tasks ...model.Task) *memStore {
	return &memStore{settings: s, tasks: tasks}
}

func (m *memStore) ReadSettings(context.Context) (model.ReminderSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnRead {
		panic("store exploded")
	}
	if m.readErr != nil {
		return model.DefaultReminderSettings(), m.readErr
	}
	return m.settings, nil
}

func (m *memStore) WriteSettings(_ context.Context, in model.ReminderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = in
	m.writes++
	return nil
}

func (m *memStore) ListTasks(context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.tasks...), nil
}

func (m *memStore) MarkFired(_ context.Context, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.settings.Enabled || m.settings.FiredOn(date) {
		return false, nil
	}
	m.settings.LastFiredDate = date
	return true, nil
}

func (m *memStore) current() model.ReminderSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *memStore) set(fn func(*memStore)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

type dispatch struct {
	title string
	body  string
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatch
}

func (d *recordingDispatcher) Dispatch(_ context.Context, title, body string) delivery.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatch{title: title, body: body})
	return delivery.Result{Channel: delivery.ChannelPersistent}
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 2, 9, hour, minute, 30, 0, time.Local)
}
