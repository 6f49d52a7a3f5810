package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

var (
	ErrPermissionDenied = errors.New("delivery: notification permission denied")
	ErrUnsupported      = errors.New("delivery: notifications not supported")
)

type Notifier interface {
	Permission() Permission
	Show(ctx context.Context, n Notification) error
}

// ActionSource is a Notifier that can report which action the user picked.
type ActionSource interface {
	OnAction(fn func(action string))
}

type NoopNotifier struct{}

func (NoopNotifier) Permission() Permission { return PermissionGranted }

func (NoopNotifier) Show(context.Context, Notification) error { return nil }

// DisabledNotifier reports denied; it stands in when desktop notifications
// are switched off in config.
type DisabledNotifier struct{}

func (DisabledNotifier) Permission() Permission { return PermissionDenied }

func (DisabledNotifier) Show(context.Context, Notification) error { return ErrPermissionDenied }

// ExecNotifier shells out to notify-send on linux and osascript on darwin.
type ExecNotifier struct {
	goos     string
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu       sync.Mutex
	onAction func(action string)
}

func NewExecNotifier() *ExecNotifier {
	return &ExecNotifier{goos: runtime.GOOS, lookPath: exec.LookPath, command: exec.CommandContext}
}

func (n *ExecNotifier) binary() string {
	switch n.goos {
	case "linux":
		return "notify-send"
	case "darwin":
		return "osascript"
	default:
		return ""
	}
}

func (n *ExecNotifier) Permission() Permission {
	bin := n.binary()
	if bin == "" {
		return PermissionUnsupported
	}
	if _, err := n.lookPath(bin); err != nil {
		return PermissionUnsupported
	}
	return PermissionGranted
}

// OnAction makes notifications with actions interactive on linux: they are
// shown without waiting and fn gets the action the user picks.
func (n *ExecNotifier) OnAction(fn func(action string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAction = fn
}

func (n *ExecNotifier) Show(ctx context.Context, note Notification) error {
	if n.Permission() != PermissionGranted {
		return ErrUnsupported
	}
	n.mu.Lock()
	onAction := n.onAction
	n.mu.Unlock()

	interactive := onAction != nil && n.goos == "linux" && len(note.Actions) > 0
	name, args := n.commandLine(note, interactive)
	if !interactive {
		if out, err := n.command(ctx, name, args...).CombinedOutput(); err != nil {
			return fmt.Errorf("delivery: %s: %w: %s", name, err, strings.TrimSpace(string(out)))
		}
		return nil
	}

	// notify-send stays up until the notification is answered or closed.
	cmd := n.command(context.Background(), name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("delivery: %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("delivery: %s: %w", name, err)
	}
	go func() {
		out, _ := io.ReadAll(stdout)
		_ = cmd.Wait()
		if action := strings.TrimSpace(string(out)); ValidAction(action) {
			onAction(action)
		}
	}()
	return nil
}

func (n *ExecNotifier) commandLine(note Notification, interactive bool) (string, []string) {
	if n.goos == "darwin" {
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(note.Body), escapeAppleScript(note.Title))
		return "osascript", []string{"-e", script}
	}
	args := []string{"--app-name=Dusk"}
	if note.Icon != "" {
		args = append(args, "--icon="+note.Icon)
	}
	if note.Tag != "" {
		args = append(args, "--hint=string:x-canonical-private-synchronous:"+note.Tag)
	}
	if interactive {
		for _, a := range note.Actions {
			args = append(args, "--action="+a.ID+"="+a.Title)
		}
		args = append(args, "--wait")
	}
	return "notify-send", append(args, note.Title, note.Body)
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
