package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
)

func newService(t *testing.T) *Service {
	t.Helper()
	repo := storage.NewKVTaskRepository(storage.NewKVStore(filepath.Join(t.TempDir(), "dusk.json")))
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.Local)
	seq := 0
	return NewService(repo,
		WithClock(func() time.Time {
			seq++
			return now.Add(time.Duration(seq) * time.Second)
		}),
		WithIDs(func() string { return fmt.Sprintf("id-%02d", seq) }),
	)
}

func TestAddResolvesDueWords(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	today, err := s.Add(ctx, "pay rent", "today", true)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if today.DueDate != "2026-02-09" || !today.Important {
		t.Fatalf("unexpected task: %+v", today)
	}
	tomorrow, err := s.Add(ctx, "call mom", "tomorrow", false)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tomorrow.DueDate != "2026-02-10" {
		t.Fatalf("unexpected due date: %q", tomorrow.DueDate)
	}
	if _, err := s.Add(ctx, "bad", "someday", false); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("expected invalid date error, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "call mom" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestToggleAndRemoveByPosition(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, _ = s.Add(ctx, "first", "", false)
	_, _ = s.Add(ctx, "second", "", false)

	done, err := s.ToggleDone(ctx, "1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if done.Title != "second" || !done.Completed {
		t.Fatalf("unexpected toggled task: %+v", done)
	}
	starred, err := s.ToggleImportant(ctx, "2")
	if err != nil || !starred.Important {
		t.Fatalf("star: %+v %v", starred, err)
	}
	removed, err := s.Remove(ctx, "2")
	if err != nil || removed.Title != "first" {
		t.Fatalf("remove: %+v %v", removed, err)
	}
	if _, err := s.Remove(ctx, "5"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected no match, got %v", err)
	}
}

func TestResolveByIDPrefix(t *testing.T) {
	list := []model.Task{{ID: "abc-1"}, {ID: "abd-2"}, {ID: "x"}}
	if got, err := Resolve(list, "abc"); err != nil || got.ID != "abc-1" {
		t.Fatalf("resolve abc: %+v %v", got, err)
	}
	if _, err := Resolve(list, "ab"); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ambiguous, got %v", err)
	}
	if _, err := Resolve(list, "zz"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected no match, got %v", err)
	}
	if got, err := Resolve(list, "x"); err != nil || got.ID != "x" {
		t.Fatalf("resolve exact: %+v %v", got, err)
	}
}

func TestCount(t *testing.T) {
	list := []model.Task{
		{ID: "1", DueDate: "2026-02-09", Important: true},
		{ID: "2", DueDate: "2026-02-10"},
		{ID: "3", DueDate: "2026-02-09", Completed: true},
	}
	got := Count(list, "2026-02-09")
	if got != (Counts{Pending: 2, DueToday: 1, Important: 1}) {
		t.Fatalf("unexpected counts: %+v", got)
	}
}
