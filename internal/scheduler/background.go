package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
)

const (
	DefaultBackgroundInterval = 60 * time.Second
	DefaultPeriodicSpec       = "@every 1h"
	PeriodicTag               = "nightly-check"

	periodicCheckTimeout = 30 * time.Second
)

type BackgroundStore interface {
	storage.SettingsRepository
	storage.TaskSource
	storage.FireMarker
}

type BackgroundConfig struct {
	Interval time.Duration
	Now      func() time.Time
	Recorder Recorder
	OnChange func(model.ReminderSettings)
}

type CheckResult struct {
	Enabled bool
	Fired   bool
	Reason  Reason
}

// Background re-arms itself one interval ahead after every timer check, so
// a restarted agent resumes polling as soon as something wakes it.
type Background struct {
	store  BackgroundStore
	router Dispatcher
	cfg    BackgroundConfig
	engine *Engine
	cron   *cron.Cron
	logger *log.Logger

	mu         sync.Mutex
	generation uint64
	periodic   cron.EntryID

	checkMu sync.Mutex
}

func NewBackground(store BackgroundStore, router Dispatcher, cfg BackgroundConfig, logger *log.Logger) *Background {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBackgroundInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	logger = logging.Component(logger, "background")
	return &Background{
		store:  store,
		router: router,
		cfg:    cfg,
		engine: NewEngine(4),
		cron:   newCron(),
		logger: logger,
	}
}

func newCron() *cron.Cron {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

func (b *Background) Wake(source string) {
	b.mu.Lock()
	b.generation++
	w := Wake{
		ID:     fmt.Sprintf("wake-%d", b.generation),
		Source: source,
		At:     b.cfg.Now().Add(b.cfg.Interval),
	}
	b.mu.Unlock()

	if err := b.engine.Replace(w); err != nil {
		b.logger.Warn("arm failed", "source", source, "err", err)
		return
	}
	b.logger.Debug("armed", "source", source, "at", w.At.Format(time.TimeOnly))
}

func (b *Background) DroppedWakes() uint64 {
	return b.engine.Dropped()
}

func (b *Background) Armed() (time.Time, bool) {
	w, ok := b.engine.Pending()
	if !ok {
		return time.Time{}, false
	}
	return w.At, true
}

// RegisterPeriodic adds the periodic host wake. A missing or invalid spec is
// logged and leaves the self re-arming loop as the only mechanism.
func (b *Background) RegisterPeriodic(spec string) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "off" {
		b.logger.Info("periodic wake disabled")
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.periodic != 0 {
		b.cron.Remove(b.periodic)
		b.periodic = 0
	}
	id, err := b.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), periodicCheckTimeout)
		defer cancel()
		_, _ = b.safeCheck(ctx, SourcePeriodic)
	})
	if err != nil {
		b.logger.Warn("periodic wake unavailable", "tag", PeriodicTag, "spec", spec, "err", err)
		return false
	}
	b.periodic = id
	b.logger.Info("periodic wake registered", "tag", PeriodicTag, "spec", spec)
	return true
}

func (b *Background) Run(ctx context.Context) error {
	b.engine.Start()
	b.cron.Start()
	defer func() {
		<-b.cron.Stop().Done()
		b.engine.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case w, ok := <-b.engine.C():
			if !ok {
				return nil
			}
			b.onWake(ctx, w)
		}
	}
}

func (b *Background) onWake(ctx context.Context, w Wake) {
	res, err := b.safeCheck(ctx, SourceTimer)
	if err == nil && !res.Enabled {
		b.logger.Info("reminders disabled, not re-arming", "wake", w.ID)
		return
	}
	b.Wake(SourceTimer)
}

func (b *Background) safeCheck(ctx context.Context, source string) (res CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: check panicked: %v", r)
			b.logger.Error("check panicked", "source", source, "panic", r)
		}
	}()
	res, err = b.Check(ctx)
	if err != nil {
		b.logger.Error("check failed", "source", source, "err", err)
	}
	return res, err
}

// Check fires when the current local time is at or after the target and
// today's reminder has not fired yet. The fire is claimed in the store
// before dispatch so a concurrent claimant loses.
func (b *Background) Check(ctx context.Context) (CheckResult, error) {
	b.checkMu.Lock()
	defer b.checkMu.Unlock()

	settings, err := b.store.ReadSettings(ctx)
	if err != nil {
		b.cfg.Recorder.ObserveCheck(SourceBackground, ReasonError)
		return CheckResult{Enabled: true}, fmt.Errorf("read settings: %w", err)
	}
	now := b.cfg.Now()
	decision := Decide(settings, now, AtOrAfter)
	b.cfg.Recorder.ObserveCheck(SourceBackground, decision.Reason)
	res := CheckResult{Enabled: settings.Enabled, Reason: decision.Reason}
	if !decision.Fire {
		return res, nil
	}

	fire := compose(ctx, b.store, now, b.logger)
	claimed, err := b.store.MarkFired(ctx, decision.Today)
	if err != nil {
		return res, fmt.Errorf("mark fired: %w", err)
	}
	if !claimed {
		res.Reason = ReasonFiredToday
		return res, nil
	}

	fire.Result = b.router.Dispatch(ctx, fire.Title, fire.Body)
	b.cfg.Recorder.ObserveFire(SourceBackground, fire.Result.Channel)
	b.logger.Info("reminder fired", "date", fire.Date, "channel", fire.Result.Channel)
	res.Fired = true

	if b.cfg.OnChange != nil {
		settings.LastFiredDate = decision.Today
		b.cfg.OnChange(settings)
	}
	return res, nil
}
