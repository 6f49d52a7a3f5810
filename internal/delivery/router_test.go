package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeNotifier struct {
	perm  Permission
	err   error
	shown []Notification
}

func (f *fakeNotifier) Permission() Permission { return f.perm }

func (f *fakeNotifier) Show(_ context.Context, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, n)
	return nil
}

type fakeHandler struct {
	active bool
	err    error
	calls  int
}

func (h *fakeHandler) Active(context.Context) bool { return h.active }

func (h *fakeHandler) ShowNotification(context.Context, string, string) error {
	h.calls++
	return h.err
}

func TestBackgroundRouterUsesPersistentChannel(t *testing.T) {
	notifier := &fakeNotifier{perm: PermissionGranted}
	board := NewToastBoard(0)
	router := NewRouter(Background, notifier, WithToaster(board))

	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelPersistent || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(notifier.shown) != 1 || notifier.shown[0].Tag != "dusk-reminder" || len(notifier.shown[0].Actions) != 2 {
		t.Fatalf("unexpected notification: %#v", notifier.shown)
	}
	if _, ok := board.Active(time.Now()); ok {
		t.Fatal("persistent delivery must not also toast")
	}
}

func TestForegroundRouterPrefersActiveHandler(t *testing.T) {
	notifier := &fakeNotifier{perm: PermissionGranted}
	handler := &fakeHandler{active: true}
	router := NewRouter(Foreground, notifier, WithHandler(handler), WithToaster(NewToastBoard(0)))

	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelPersistent || handler.calls != 1 || len(notifier.shown) != 0 {
		t.Fatalf("expected handler delivery: res=%+v calls=%d shown=%d", res, handler.calls, len(notifier.shown))
	}

	handler.err = errors.New("agent went away")
	res = router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelPersistent || len(notifier.shown) != 1 {
		t.Fatalf("expected direct notifier fallback: res=%+v shown=%d", res, len(notifier.shown))
	}
}

func TestForegroundRouterInactiveHandlerUsesNotifier(t *testing.T) {
	notifier := &fakeNotifier{perm: PermissionGranted}
	handler := &fakeHandler{active: false}
	router := NewRouter(Foreground, notifier, WithHandler(handler))

	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelPersistent || handler.calls != 0 || len(notifier.shown) != 1 {
		t.Fatalf("unexpected routing: res=%+v calls=%d", res, handler.calls)
	}
}

func TestDeniedPermissionFallsBackToToastAndReportsOnce(t *testing.T) {
	board := NewToastBoard(0)
	router := NewRouter(Foreground, &fakeNotifier{perm: PermissionDenied}, WithToaster(board))

	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelToast || !errors.Is(res.Err, ErrPermissionDenied) {
		t.Fatalf("unexpected result: %+v", res)
	}
	toast, ok := board.Active(time.Now())
	if !ok || toast.Title != "Title" || !strings.Contains(toast.Body, BlockedTitle) || toast.Level != ToastWarning {
		t.Fatalf("expected blocked notice in first toast: %+v", toast)
	}

	res = router.Dispatch(context.Background(), "Title", "Body 2")
	if res.Channel != ChannelToast {
		t.Fatalf("unexpected result: %+v", res)
	}
	toast, _ = board.Active(time.Now())
	if toast.Body != "Body 2" || toast.Level != ToastInfo {
		t.Fatalf("notice must be reported only once: %+v", toast)
	}
}

func TestShowFailureFallsBackToToast(t *testing.T) {
	board := NewToastBoard(0)
	router := NewRouter(Background, &fakeNotifier{perm: PermissionGranted, err: errors.New("dbus down")}, WithToaster(board))

	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelToast || res.Err == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := board.Active(time.Now()); !ok {
		t.Fatal("expected toast")
	}
}

func TestUnsupportedWithoutToasterReportsNone(t *testing.T) {
	router := NewRouter(Background, &fakeNotifier{perm: PermissionUnsupported})
	res := router.Dispatch(context.Background(), "Title", "Body")
	if res.Channel != ChannelNone || !errors.Is(res.Err, ErrUnsupported) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestToastBoardExpiryAndDismiss(t *testing.T) {
	board := NewToastBoard(8 * time.Second)
	base := time.Date(2026, 2, 9, 21, 0, 0, 0, time.Local)
	board.now = func() time.Time { return base }

	var shown []Toast
	board.OnShow(func(t Toast) { shown = append(shown, t) })
	board.Toast("first", "", ToastInfo)
	board.Toast("second", "", ToastSuccess)
	if len(shown) != 2 {
		t.Fatalf("expected two callbacks, got %d", len(shown))
	}

	toast, ok := board.Active(base.Add(7 * time.Second))
	if !ok || toast.Title != "second" {
		t.Fatalf("expected newest toast active: %+v ok=%v", toast, ok)
	}
	if _, ok := board.Active(base.Add(8 * time.Second)); ok {
		t.Fatal("toast must expire after 8s")
	}

	board.Toast("third", "", ToastInfo)
	board.Dismiss()
	if _, ok := board.Active(base); ok {
		t.Fatal("dismissed toast must not be active")
	}
}

func TestShowNeverToasts(t *testing.T) {
	board := NewToastBoard(0)
	toasts := 0
	board.OnShow(func(Toast) { toasts++ })

	granted := &fakeNotifier{perm: PermissionGranted}
	if err := NewRouter(Background, granted, WithToaster(board)).Show(context.Background(), NewReminder("T", "B")); err != nil {
		t.Fatalf("show: %v", err)
	}
	if len(granted.shown) != 1 {
		t.Fatalf("expected one notification, got %d", len(granted.shown))
	}

	denied := NewRouter(Background, &fakeNotifier{perm: PermissionDenied}, WithToaster(board))
	if err := denied.Show(context.Background(), NewReminder("T", "B")); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if err := NewRouter(Background, nil, WithToaster(board)).Show(context.Background(), NewReminder("T", "B")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if toasts != 0 {
		t.Fatalf("show must not toast, got %d", toasts)
	}
}
