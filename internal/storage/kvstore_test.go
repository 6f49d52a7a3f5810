package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/dusk/internal/model"
)

func TestKVStoreSetGetDelete(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "state", "dusk.json"))

	if _, ok, err := store.Get("missing"); ok || err != nil {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := store.Set("a", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("b", []byte(`[1,2]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, err := store.Get("a")
	if err != nil || !ok || string(raw) != `{"x":1}` {
		t.Fatalf("unexpected get: raw=%s ok=%v err=%v", raw, ok, err)
	}
	keys, err := store.Keys()
	if err != nil || len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys: %v err=%v", keys, err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get("a"); ok {
		t.Fatal("expected key deleted")
	}
	if err := store.Set("bad", []byte("{")); err == nil {
		t.Fatal("expected invalid json to be rejected")
	}
}

func TestKVStoreSeesWritesFromAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dusk.json")
	first := NewKVStore(path)
	second := NewKVStore(path)

	if err := first.Set("k", []byte(`"v1"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, err := second.Get("k")
	if err != nil || !ok || string(raw) != `"v1"` {
		t.Fatalf("second handle did not observe write: raw=%s ok=%v err=%v", raw, ok, err)
	}
}

func TestKVStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dusk.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewKVStore(path)
	if _, _, err := store.Get("k"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if err := store.Set("k", []byte(`true`)); err != nil {
		t.Fatalf("set over corrupt document: %v", err)
	}
	if raw, ok, err := store.Get("k"); err != nil || !ok || string(raw) != "true" {
		t.Fatalf("expected recovered document, raw=%s ok=%v err=%v", raw, ok, err)
	}
}

func TestKVSettingsRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dusk.json")
	repo := NewKVSettingsRepository(NewKVStore(path))

	got, err := repo.ReadSettings(ctx)
	if err != nil || got != model.DefaultReminderSettings() {
		t.Fatalf("expected defaults, got %+v err=%v", got, err)
	}

	in := model.ReminderSettings{Enabled: true, TargetTime: "20:30", LastFiredDate: "2026-02-09"}
	if err := repo.WriteSettings(ctx, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = repo.ReadSettings(ctx)
	if err != nil || got != in {
		t.Fatalf("settings = %+v err=%v, want %+v", got, err, in)
	}
}

func TestKVSettingsPartialAndCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(filepath.Join(t.TempDir(), "dusk.json"))
	repo := NewKVSettingsRepository(store)

	if err := store.Set(model.SettingsKey, []byte(`{"enabled":true}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := repo.ReadSettings(ctx)
	if err != nil || !got.Enabled || got.TargetTime != "21:00" || got.LastFiredDate != "" {
		t.Fatalf("partial record should keep defaults: %+v err=%v", got, err)
	}

	if err := store.Set(model.SettingsKey, []byte(`{"enabled":"yes"}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err = repo.ReadSettings(ctx)
	if !errors.Is(err, ErrCorrupt) || got != model.DefaultReminderSettings() {
		t.Fatalf("corrupt record should fall back to defaults: %+v err=%v", got, err)
	}
}

func TestKVTaskRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTaskRepository(NewKVStore(filepath.Join(t.TempDir(), "dusk.json")))
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

	list, err := repo.ListTasks(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", list, err)
	}
	if err := repo.CreateTask(ctx, model.Task{ID: "1", Title: "first", CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateTask(ctx, model.Task{ID: "2", Title: "second", CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateTask(ctx, model.Task{ID: "2", Title: "dup", CreatedAt: now}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	list, _ = repo.ListTasks(ctx)
	if len(list) != 2 || list[0].ID != "2" {
		t.Fatalf("newest task should come first: %#v", list)
	}

	task, err := repo.GetTask(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	task.Completed = true
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := repo.GetTask(ctx, "1"); !got.Completed {
		t.Fatalf("expected completed task, got %+v", got)
	}
	if err := repo.DeleteTask(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTask(ctx, "1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTask(ctx, "1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVSettingsRecordFire(t *testing.T) {
	store := NewKVStore(filepath.Join(t.TempDir(), "dusk.json"))
	repo := NewKVSettingsRepository(store)
	ctx := context.Background()

	claimed, err := repo.RecordFire(ctx, "2026-02-09", "21:00")
	if err != nil || claimed {
		t.Fatalf("disabled defaults must not be claimed: claimed=%v err=%v", claimed, err)
	}
	if err := repo.WriteSettings(ctx, model.ReminderSettings{Enabled: true, TargetTime: "21:00"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := repo.RecordFire(ctx, "not-a-date", "21:00"); err == nil {
		t.Fatal("expected invalid date error")
	}
	claimed, err = repo.RecordFire(ctx, "2026-02-09", "21:00")
	if err != nil || !claimed {
		t.Fatalf("expected claim: claimed=%v err=%v", claimed, err)
	}
	got, _ := repo.ReadSettings(ctx)
	if got.LastFiredDate != "2026-02-09" || got.TargetTime != "21:00" || !got.Enabled {
		t.Fatalf("settings = %+v", got)
	}
	if claimed, _ := repo.RecordFire(ctx, "2026-02-09", "21:00"); claimed {
		t.Fatal("same date must not be claimed twice")
	}
}
