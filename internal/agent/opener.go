package agent

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Opener brings the foreground to the user for the "open" action.
type Opener interface {
	Open(ctx context.Context) error
}

var ErrNoOpener = errors.New("agent: no open command configured")

// CommandOpener runs the configured shell command, for example a terminal
// emulator launching "dusk tui".
type CommandOpener struct {
	Command string
}

// Open starts the command detached; it outlives the request that asked for it.
func (o CommandOpener) Open(_ context.Context) error {
	cmd := strings.TrimSpace(o.Command)
	if cmd == "" {
		return ErrNoOpener
	}
	c := exec.Command("sh", "-c", cmd)
	if err := c.Start(); err != nil {
		return err
	}
	go func() { _ = c.Wait() }()
	return nil
}
