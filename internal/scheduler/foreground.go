package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/storage"
)

const (
	DefaultForegroundInterval = 30 * time.Second
	MaxForegroundInterval     = 60 * time.Second
)

const (
	SourceForeground = "foreground"
	SourceBackground = "background"
	SourceTimer      = "timer"
	SourcePeriodic   = "periodic"
)

type State string

const (
	Idle    State = "idle"
	Polling State = "polling"
)

type ForegroundConfig struct {
	Interval   time.Duration
	Comparison Comparison
	Now        func() time.Time
	Recorder   Recorder
	OnFire     func(Fire)
}

type Foreground struct {
	settings storage.SettingsRepository
	tasks    storage.TaskSource
	router   Dispatcher
	cfg      ForegroundConfig
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	checkMu sync.Mutex
}

func NewForeground(settings storage.SettingsRepository, tasks storage.TaskSource, router Dispatcher, cfg ForegroundConfig, logger *log.Logger) *Foreground {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultForegroundInterval
	}
	if cfg.Interval > MaxForegroundInterval {
		cfg.Interval = MaxForegroundInterval
	}
	if cfg.Comparison == "" {
		cfg.Comparison = ExactMinute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Foreground{
		settings: settings,
		tasks:    tasks,
		router:   router,
		cfg:      cfg,
		logger:   logging.Component(logger, "foreground"),
	}
}

func (f *Foreground) Enable(ctx context.Context) {
	f.Disable()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.mu.Lock()
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go f.loop(loopCtx, done)
}

// Disable stops the loop and waits for an in-flight tick to finish.
func (f *Foreground) Disable() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (f *Foreground) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel == nil {
		return Idle
	}
	return Polling
}

func (f *Foreground) Interval() time.Duration {
	return f.cfg.Interval
}

func (f *Foreground) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	f.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Foreground) tick(ctx context.Context) {
	if _, err := f.Check(ctx); err != nil {
		f.logger.Warn("check failed", "err", err)
	}
}

func (f *Foreground) Check(ctx context.Context) (bool, error) {
	f.checkMu.Lock()
	defer f.checkMu.Unlock()

	settings, err := f.settings.ReadSettings(ctx)
	if err != nil {
		f.logger.Warn("settings unreadable, using defaults", "err", err)
	}
	now := f.cfg.Now()
	decision := Decide(settings, now, f.cfg.Comparison)
	f.cfg.Recorder.ObserveCheck(SourceForeground, decision.Reason)
	if !decision.Fire {
		f.logger.Debug("no fire", "reason", decision.Reason)
		return false, nil
	}

	fire := compose(ctx, f.tasks, now, f.logger)

	// Another process sharing the store may have fired while tasks were read.
	latest, err := f.settings.ReadSettings(ctx)
	if err == nil && Decide(latest, now, f.cfg.Comparison).Reason == ReasonFiredToday {
		f.logger.Debug("fired elsewhere", "date", decision.Today)
		return false, nil
	}

	fire.Result = f.router.Dispatch(ctx, fire.Title, fire.Body)
	f.cfg.Recorder.ObserveFire(SourceForeground, fire.Result.Channel)
	f.logger.Info("reminder fired", "date", fire.Date, "channel", fire.Result.Channel)

	if f.cfg.OnFire != nil {
		f.cfg.OnFire(fire)
	}
	recorded, err := storage.RecordFire(ctx, f.settings, decision.Today, settings.TargetTime)
	if err != nil {
		return true, err
	}
	if !recorded {
		f.logger.Info("settings changed during dispatch, fire not recorded", "target", settings.TargetTime)
	}
	return true, nil
}
