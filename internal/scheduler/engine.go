package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidWakeTime = errors.New("scheduler: invalid wake time")
	ErrEngineStopped   = errors.New("scheduler: engine stopped")
)

type Wake struct {
	ID     string
	Source string
	At     time.Time
}

// Engine holds at most one pending wake and emits it on C once it is due.
// A due wake the consumer has no room for is counted as dropped.
type Engine struct {
	mu      sync.Mutex
	pending *Wake
	out     chan Wake
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		out:    make(chan Wake, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Wake {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Replace(w Wake) error {
	if w.At.IsZero() {
		return ErrInvalidWakeTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	e.pending = &w
	e.signalWakeup()
	return nil
}

func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
	e.signalWakeup()
}

func (e *Engine) Pending() (Wake, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return Wake{}, false
	}
	return *e.pending, true
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, armed := e.Pending()
		if !armed {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		timer = resetTimer(timer, max(time.Until(next.At), 0))
		select {
		case <-timer.C:
			w, due := e.takeDue(time.Now())
			if !due {
				continue
			}
			select {
			case e.out <- w:
			default:
				atomic.AddUint64(&e.dropped, 1)
			}
		case <-e.wakeup:
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) takeDue(now time.Time) (Wake, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil || e.pending.At.After(now) {
		return Wake{}, false
	}
	w := *e.pending
	e.pending = nil
	return w, true
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
