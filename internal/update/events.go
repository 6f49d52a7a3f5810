package update

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/scheduler"
)

const (
	defaultBridgeBuffer = 64
	resubscribeDelay    = 5 * time.Second
)

// Subscriber is the agent's event stream.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func(agent.Event)) error
}

// Bridge carries callbacks from scheduler and delivery goroutines into the
// update loop. Sends never block; a full buffer drops the message.
type Bridge struct {
	ch     chan tea.Msg
	logger *log.Logger
}

func NewBridge(size int, logger *log.Logger) *Bridge {
	if size <= 0 {
		size = defaultBridgeBuffer
	}
	return &Bridge{ch: make(chan tea.Msg, size), logger: logging.Component(logger, "bridge")}
}

func (b *Bridge) C() <-chan tea.Msg {
	return b.ch
}

func (b *Bridge) Send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		b.logger.Warn("update loop busy, message dropped", "msg", msg)
	}
}

func (b *Bridge) OnFire(f scheduler.Fire) {
	b.Send(FireMsg{Fire: f})
}

func (b *Bridge) OnToast(t delivery.Toast) {
	b.Send(ToastMsg{Toast: t})
}

// Follow keeps a subscription to the agent open until ctx ends, reconnecting
// after the agent restarts.
func (b *Bridge) Follow(ctx context.Context, sub Subscriber) {
	for {
		err := sub.Subscribe(ctx, func(ev agent.Event) {
			b.Send(AgentEventMsg{Event: ev})
		})
		if ctx.Err() != nil {
			return
		}
		b.Send(AgentStateMsg{Connected: false, Err: err})
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
