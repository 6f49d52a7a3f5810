package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskValidateSuccess(t *testing.T) {
	task := Task{
		ID:        "task-1",
		Title:     "Pay rent",
		DueDate:   "2026-02-09",
		CreatedAt: time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateRequiredFields(t *testing.T) {
	if err := (Task{Title: "x"}).Validate(); err == nil || err.Error() != "model: task id is required" {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Task{ID: "task-1", Title: "  "}).Validate(); err == nil || err.Error() != "model: task title is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskValidateDueDate(t *testing.T) {
	task := Task{ID: "task-1", Title: "x", DueDate: "02/09/2026"}
	if err := task.Validate(); !errors.Is(err, ErrInvalidDueDate) {
		t.Fatalf("expected ErrInvalidDueDate, got %v", err)
	}
}

func TestTaskPendingAndDueOn(t *testing.T) {
	task := Task{ID: "task-1", Title: "x", DueDate: "2026-02-09"}
	if !task.Pending() || !task.DueOn("2026-02-09") || task.DueOn("") {
		t.Fatalf("unexpected predicates for %+v", task)
	}
	task.Completed = true
	if task.Pending() {
		t.Fatal("completed task should not be pending")
	}
}
