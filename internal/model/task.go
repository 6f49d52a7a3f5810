package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const TasksKey = "dusk-tasks"

var ErrInvalidDueDate = errors.New("model: invalid task due date")

// Task carries only what the reminder summary reads plus ordering metadata.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueDate   string    `json:"dueDate"`
	Important bool      `json:"important"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if t.DueDate != "" {
		if _, err := ParseDate(t.DueDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDueDate, t.DueDate)
		}
	}
	return nil
}

func (t Task) Pending() bool {
	return !t.Completed
}

func (t Task) DueOn(date string) bool {
	return date != "" && t.DueDate == date
}
