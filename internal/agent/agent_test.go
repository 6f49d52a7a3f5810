package agent

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/dusk/internal/config"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu    sync.Mutex
	perm  delivery.Permission
	shown []delivery.Notification
}

func (n *captureNotifier) Permission() delivery.Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.perm
}

func (n *captureNotifier) setPermission(p delivery.Permission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.perm = p
}

func (n *captureNotifier) Show(_ context.Context, note delivery.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, note)
	return nil
}

func (n *captureNotifier) last(t *testing.T) delivery.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.shown)
	return n.shown[len(n.shown)-1]
}

type fixture struct {
	agent    *Agent
	store    *storage.SQLiteRepository
	notifier *captureNotifier
	server   *httptest.Server
	client   *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Background.Interval = time.Hour
	notifier := &captureNotifier{perm: delivery.PermissionGranted}
	a := New(cfg, store, notifier, nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		a.hub.CloseAll()
		srv.Close()
		_ = a.Close()
	})
	return &fixture{agent: a, store: store, notifier: notifier, server: srv, client: NewClient(srv.URL)}
}

func TestSyncSettingsStoresAndArms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := model.ReminderSettings{Enabled: true, TargetTime: "22:00"}
	require.NoError(t, f.client.SyncSettings(ctx, in, false))

	got, err := f.store.ReadSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, in, got)

	_, armed := f.agent.Background().Armed()
	require.True(t, armed)

	remote, err := f.client.Settings(ctx)
	require.NoError(t, err)
	require.Equal(t, in, remote)
}

func TestSyncSettingsKeepsLaterBackgroundFire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.WriteSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:00", LastFiredDate: "2026-02-09"}))

	require.NoError(t, f.client.SyncSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:00"}, false))
	got, _ := f.store.ReadSettings(ctx)
	require.Equal(t, "2026-02-09", got.LastFiredDate)

	require.NoError(t, f.client.SyncSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:30"}, true))
	got, _ = f.store.ReadSettings(ctx)
	require.Equal(t, "", got.LastFiredDate, "a new target time re-opens the day")
}

func TestSyncTasksReplacesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

	require.NoError(t, f.client.SyncTasks(ctx, []model.Task{{ID: "a", Title: "A", CreatedAt: now}}))
	require.NoError(t, f.client.SyncTasks(ctx, []model.Task{{ID: "b", Title: "B", CreatedAt: now}}))

	tasks, err := f.store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "b", tasks[0].ID)
}

func TestShowNotificationAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.ShowNotification(context.Background(), "", ""))

	note := f.notifier.last(t)
	require.Equal(t, "Dusk", note.Title)
	require.Equal(t, "Check your tasks!", note.Body)
	require.Equal(t, "dusk-reminder", note.Tag)
}

func TestShowNotificationRefusedWithoutToast(t *testing.T) {
	f := newFixture(t)
	f.notifier.setPermission(delivery.PermissionDenied)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	go func() { _ = f.client.Subscribe(ctx, func(ev Event) { events <- ev }) }()
	require.Equal(t, EventSettingsChanged, waitEvent(t, events).Type)
	require.Eventually(t, func() bool { return f.agent.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	err := f.client.ShowNotification(context.Background(), "Title", "Body")
	require.Error(t, err)
	require.Contains(t, err.Error(), string(delivery.ChannelNone))

	select {
	case ev := <-events:
		t.Fatalf("refused notification must not reach subscribers: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestForegroundDispatchWithRefusingAgentUsesOneChannel(t *testing.T) {
	f := newFixture(t)
	f.notifier.setPermission(delivery.PermissionUnsupported)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	go func() { _ = f.client.Subscribe(ctx, func(ev Event) { events <- ev }) }()
	require.Equal(t, EventSettingsChanged, waitEvent(t, events).Type)
	require.Eventually(t, func() bool { return f.agent.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	board := delivery.NewToastBoard(0)
	var toasts int
	board.OnShow(func(delivery.Toast) { toasts++ })
	router := delivery.NewRouter(delivery.Foreground, delivery.DisabledNotifier{},
		delivery.WithHandler(f.client), delivery.WithToaster(board))

	res := router.Dispatch(context.Background(), "Title", "Body")
	require.Equal(t, delivery.ChannelToast, res.Channel)
	require.Equal(t, 1, toasts)

	select {
	case ev := <-events:
		t.Fatalf("agent must not toast as well: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMessageValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"unknown type":     `{"type":"SKIP_WAITING"}`,
		"missing settings": `{"type":"SYNC_SETTINGS"}`,
		"bad target":       `{"type":"SYNC_SETTINGS","settings":{"enabled":true,"targetTime":"25:00"}}`,
		"not json":         `hello`,
	}
	for name, body := range cases {
		resp, err := http.Post(f.server.URL+"/v1/messages", "application/json", strings.NewReader(body))
		require.NoError(t, err, name)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestPushPayloads(t *testing.T) {
	f := newFixture(t)
	post := func(body string) {
		resp, err := http.Post(f.server.URL+"/v1/push", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	post(`{"body":"From the server","icon":"custom"}`)
	note := f.notifier.last(t)
	require.Equal(t, "Dusk — Nightly Reminder", note.Title)
	require.Equal(t, "From the server", note.Body)
	require.Equal(t, "custom", note.Icon)
	require.Equal(t, delivery.DefaultBadge, note.Badge)

	post(`plain text reminder`)
	require.Equal(t, "plain text reminder", f.notifier.last(t).Body)

	post(``)
	require.Equal(t, "Check your pending tasks!", f.notifier.last(t).Body)
}

func TestNotificationActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := http.Post(f.server.URL+"/v1/notifications/actions/dismiss", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Post(f.server.URL+"/v1/notifications/actions/snooze", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, f.client.Action(ctx, "open"))
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- f.client.Subscribe(ctx, func(ev Event) { events <- ev })
	}()

	first := waitEvent(t, events)
	require.Equal(t, EventSettingsChanged, first.Type)
	require.Equal(t, model.DefaultReminderSettings(), *first.Settings)

	require.Eventually(t, func() bool { return f.agent.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.client.SyncSettings(context.Background(), model.ReminderSettings{Enabled: true, TargetTime: "20:00"}, true))
	changed := waitEvent(t, events)
	require.Equal(t, EventSettingsChanged, changed.Type)
	require.Equal(t, "20:00", changed.Settings.TargetTime)

	require.NoError(t, f.client.Action(context.Background(), "open"))
	require.Equal(t, EventFocus, waitEvent(t, events).Type)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.client.Active(ctx))
	require.NoError(t, f.client.SyncTasks(ctx, nil))

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `dusk_agent_messages_total{type="SYNC_TASKS"} 1`)
	require.Contains(t, string(body), "dusk_scheduler_dropped_wakes_total 0")

	require.False(t, NewClient("http://127.0.0.1:1").Active(ctx))
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.agent.Serve(ctx, ln) }()

	client := NewClient("http://" + ln.Addr().String())
	require.Eventually(t, func() bool { return client.Active(context.Background()) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestMergeSettings(t *testing.T) {
	current := model.ReminderSettings{Enabled: true, TargetTime: "21:00", LastFiredDate: "2026-02-09"}
	require.Equal(t, "2026-02-09", mergeSettings(current, model.ReminderSettings{Enabled: false, TargetTime: "21:00"}, false).LastFiredDate)
	require.Equal(t, "", mergeSettings(current, model.ReminderSettings{Enabled: true, TargetTime: "22:00"}, false).LastFiredDate)
	require.Equal(t, "2026-02-10", mergeSettings(current, model.ReminderSettings{TargetTime: "21:00", LastFiredDate: "2026-02-10"}, false).LastFiredDate)
	// Back on the same target after a change the agent never saw.
	require.Equal(t, "", mergeSettings(current, model.ReminderSettings{Enabled: true, TargetTime: "21:00"}, true).LastFiredDate)
}

func TestSyncSettingsTargetChangeReopensDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.WriteSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:00", LastFiredDate: "2026-02-09"}))

	require.NoError(t, f.client.SyncSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:00"}, true))
	got, err := f.store.ReadSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "", got.LastFiredDate)
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

type actionNotifier struct {
	captureNotifier
	onAction func(string)
}

func (n *actionNotifier) OnAction(fn func(string)) { n.onAction = fn }

func TestNotificationActionFocusesForeground(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	notifier := &actionNotifier{captureNotifier: captureNotifier{perm: delivery.PermissionGranted}}
	a := New(config.Default(), store, notifier, nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		a.hub.CloseAll()
		srv.Close()
		_ = a.Close()
	})
	require.NotNil(t, notifier.onAction)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 8)
	go func() { _ = NewClient(srv.URL).Subscribe(ctx, func(ev Event) { events <- ev }) }()
	require.Equal(t, EventSettingsChanged, waitEvent(t, events).Type)
	require.Eventually(t, func() bool { return a.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	notifier.onAction(delivery.ActionOpen)
	require.Equal(t, EventFocus, waitEvent(t, events).Type)
}
