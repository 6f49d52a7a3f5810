package delivery

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/logging"
)

type ContextKind string

const (
	Foreground ContextKind = "foreground"
	Background ContextKind = "background"
)

type Channel string

const (
	ChannelPersistent Channel = "persistent"
	ChannelToast      Channel = "toast"
	ChannelNone       Channel = "none"
)

const (
	BlockedTitle     = "Notifications blocked"
	BlockedBody      = "Showing reminders inside Dusk instead. Allow notifications to get them outside the app."
	UnsupportedTitle = "Notifications not supported"
	UnsupportedBody  = "This system has no notification service; reminders will show inside Dusk."
)

// Handler is the background context as seen from the foreground.
type Handler interface {
	Active(ctx context.Context) bool
	ShowNotification(ctx context.Context, title, body string) error
}

// Result reports where a dispatch went. Err is informational only.
type Result struct {
	Channel Channel
	Err     error
}

func (r Result) Persistent() bool {
	return r.Channel == ChannelPersistent
}

type RouterOption func(*Router)

func WithHandler(h Handler) RouterOption {
	return func(r *Router) { r.handler = h }
}

func WithToaster(t Toaster) RouterOption {
	return func(r *Router) { r.toaster = t }
}

func WithLogger(l *log.Logger) RouterOption {
	return func(r *Router) { r.logger = logging.OrNop(l) }
}

// Router picks exactly one channel per dispatch and never returns an error.
type Router struct {
	kind     ContextKind
	notifier Notifier
	handler  Handler
	toaster  Toaster
	logger   *log.Logger

	mu       sync.Mutex
	reported bool
}

func NewRouter(kind ContextKind, notifier Notifier, opts ...RouterOption) *Router {
	r := &Router{kind: kind, notifier: notifier, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Kind() ContextKind {
	return r.kind
}

func (r *Router) Dispatch(ctx context.Context, title, body string) Result {
	return r.Deliver(ctx, NewReminder(title, body))
}

// Deliver is Dispatch for a fully built notification.
func (r *Router) Deliver(ctx context.Context, n Notification) Result {
	if r.kind == Foreground && r.handler != nil && r.handler.Active(ctx) {
		err := r.handler.ShowNotification(ctx, n.Title, n.Body)
		if err == nil {
			return Result{Channel: ChannelPersistent}
		}
		r.logger.Warn("background handler refused notification", "err", err)
	}

	if r.notifier != nil {
		perm := r.notifier.Permission()
		if perm == PermissionGranted {
			err := r.notifier.Show(ctx, n)
			if err == nil {
				return Result{Channel: ChannelPersistent}
			}
			r.logger.Warn("persistent notification failed", "err", err)
			return r.fallback(n.Title, n.Body, PermissionDenied, err)
		}
		return r.fallback(n.Title, n.Body, perm, permissionError(perm))
	}
	return r.fallback(n.Title, n.Body, PermissionUnsupported, ErrUnsupported)
}

// Show delivers n through the persistent channel only. It never toasts, so a
// caller with its own fallback stays the one channel that shows n.
func (r *Router) Show(ctx context.Context, n Notification) error {
	if r.notifier == nil {
		return ErrUnsupported
	}
	if perm := r.notifier.Permission(); perm != PermissionGranted {
		return permissionError(perm)
	}
	return r.notifier.Show(ctx, n)
}

// ResetReport re-arms the one-time "blocked" notice, used after the user
// grants permission again.
func (r *Router) ResetReport() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = false
}

func (r *Router) fallback(title, body string, perm Permission, cause error) Result {
	if r.toaster == nil {
		r.logger.Error("no delivery channel available", "title", title, "err", cause)
		return Result{Channel: ChannelNone, Err: cause}
	}
	level := ToastInfo
	if r.reportOnce() {
		r.logger.Info("persistent notifications unavailable, using toasts", "permission", perm)
		body = body + "\n\n" + noticeFor(perm)
		level = ToastWarning
	}
	r.toaster.Toast(title, body, level)
	return Result{Channel: ChannelToast, Err: cause}
}

func (r *Router) reportOnce() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reported {
		return false
	}
	r.reported = true
	return true
}

func noticeFor(p Permission) string {
	if p == PermissionUnsupported {
		return UnsupportedTitle + ": " + UnsupportedBody
	}
	return BlockedTitle + ": " + BlockedBody
}

func permissionError(p Permission) error {
	if p == PermissionUnsupported {
		return ErrUnsupported
	}
	return ErrPermissionDenied
}
