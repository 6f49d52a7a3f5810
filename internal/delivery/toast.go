package delivery

import (
	"sync"
	"time"
)

const DefaultToastDuration = 8 * time.Second

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
)

type Toast struct {
	Title     string
	Body      string
	Level     ToastLevel
	ShownAt   time.Time
	ExpiresAt time.Time
}

// Toaster is the in-app channel. The TUI owns a ToastBoard; the agent
// forwards toasts to connected foregrounds over its event stream.
type Toaster interface {
	Toast(title, body string, level ToastLevel)
}

// ToastBoard holds at most one toast; a new toast replaces the current one.
type ToastBoard struct {
	mu       sync.Mutex
	current  *Toast
	duration time.Duration
	now      func() time.Time
	onShow   func(Toast)
}

func NewToastBoard(duration time.Duration) *ToastBoard {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &ToastBoard{duration: duration, now: time.Now}
}

// OnShow registers a callback run after every new toast, outside the lock.
func (b *ToastBoard) OnShow(fn func(Toast)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onShow = fn
}

func (b *ToastBoard) Toast(title, body string, level ToastLevel) {
	b.mu.Lock()
	now := b.now()
	t := Toast{Title: title, Body: body, Level: level, ShownAt: now, ExpiresAt: now.Add(b.duration)}
	b.current = &t
	fn := b.onShow
	b.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (b *ToastBoard) Active(now time.Time) (Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Toast{}, false
	}
	if !now.Before(b.current.ExpiresAt) {
		b.current = nil
		return Toast{}, false
	}
	return *b.current, true
}

func (b *ToastBoard) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
}
