package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
)

var (
	ErrNoMatch   = errors.New("tasks: no matching task")
	ErrAmbiguous = errors.New("tasks: more than one task matches")
)

// Service is the minimal task editing the reminder needs as input. Ids are
// random UUIDs so a CLI invocation and a running TUI never collide.
type Service struct {
	repo  storage.TaskRepository
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(repo storage.TaskRepository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.ListTasks(ctx)
}

func (s *Service) Add(ctx context.Context, title, due string, important bool) (model.Task, error) {
	dueDate, err := ResolveDue(due, s.now())
	if err != nil {
		return model.Task{}, err
	}
	task := model.Task{
		ID:        s.newID(),
		Title:     strings.TrimSpace(title),
		DueDate:   dueDate,
		Important: important,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Service) ToggleDone(ctx context.Context, target string) (model.Task, error) {
	return s.edit(ctx, target, func(t *model.Task) { t.Completed = !t.Completed })
}

func (s *Service) ToggleImportant(ctx context.Context, target string) (model.Task, error) {
	return s.edit(ctx, target, func(t *model.Task) { t.Important = !t.Important })
}

func (s *Service) Remove(ctx context.Context, target string) (model.Task, error) {
	list, err := s.repo.ListTasks(ctx)
	if err != nil {
		return model.Task{}, err
	}
	task, err := Resolve(list, target)
	if err != nil {
		return model.Task{}, err
	}
	if err := s.repo.DeleteTask(ctx, task.ID); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Service) edit(ctx context.Context, target string, fn func(*model.Task)) (model.Task, error) {
	list, err := s.repo.ListTasks(ctx)
	if err != nil {
		return model.Task{}, err
	}
	task, err := Resolve(list, target)
	if err != nil {
		return model.Task{}, err
	}
	fn(&task)
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Resolve finds a task by 1-based position in list or by id prefix.
func Resolve(list []model.Task, target string) (model.Task, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return model.Task{}, ErrNoMatch
	}
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(list) {
			return model.Task{}, fmt.Errorf("%w: #%d", ErrNoMatch, n)
		}
		return list[n-1], nil
	}
	var found []model.Task
	for _, t := range list {
		if t.ID == target {
			return t, nil
		}
		if strings.HasPrefix(t.ID, target) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("%w: %s", ErrNoMatch, target)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, fmt.Errorf("%w: %s", ErrAmbiguous, target)
	}
}

// ResolveDue accepts "", today, tomorrow or a YYYY-MM-DD date.
func ResolveDue(raw string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "today":
		return model.DateString(now), nil
	case "tomorrow":
		return model.DateString(now.AddDate(0, 0, 1)), nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return "", err
	}
	return model.DateString(d), nil
}

// Counts is the breakdown shown in headers and the CLI listing.
type Counts struct {
	Pending   int
	DueToday  int
	Important int
}

func Count(list []model.Task, today string) Counts {
	var c Counts
	for _, t := range list {
		if !t.Pending() {
			continue
		}
		c.Pending++
		if t.DueOn(today) {
			c.DueToday++
		}
		if t.Important {
			c.Important++
		}
	}
	return c
}
