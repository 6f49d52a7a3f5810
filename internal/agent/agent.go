package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/config"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/metrics"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/scheduler"
	"github.com/sandeepkv93/dusk/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	actionTimeout   = 10 * time.Second
)

type closableStore interface {
	Store
	Close() error
}

// Agent is the background context: transactional store, self re-arming
// scheduler and the loopback HTTP surface the foreground talks to.
type Agent struct {
	cfg        config.Config
	store      closableStore
	hub        *Hub
	metrics    *metrics.Metrics
	background *scheduler.Background
	server     *Server
	logger     *log.Logger
}

func Open(ctx context.Context, cfg config.Config, notifier delivery.Notifier, logger *log.Logger) (*Agent, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, store, notifier, logger), nil
}

func openStore(ctx context.Context, cfg config.Config) (closableStore, error) {
	switch cfg.Background.Store {
	case config.StoreRedis:
		return storage.OpenRedis(ctx, cfg.Background.RedisURL)
	default:
		return storage.OpenSQLite(cfg.SQLitePath)
	}
}

func New(cfg config.Config, store closableStore, notifier delivery.Notifier, logger *log.Logger) *Agent {
	logger = logging.OrNop(logger)
	if notifier == nil {
		notifier = delivery.NoopNotifier{}
	}
	m := metrics.New()
	hub := NewHub(logging.Component(logger, "events"))
	router := delivery.NewRouter(delivery.Background, notifier,
		delivery.WithToaster(hub),
		delivery.WithLogger(logging.Component(logger, "delivery")),
	)
	bg := scheduler.NewBackground(store, router, scheduler.BackgroundConfig{
		Interval: cfg.Background.Interval,
		Recorder: m,
		OnChange: func(s model.ReminderSettings) { hub.Broadcast(SettingsChanged(s)) },
	}, logger)
	m.WatchDroppedWakes(bg.DroppedWakes)

	server := NewServer(ServerDeps{
		Store:      store,
		Background: bg,
		Router:     router,
		Hub:        hub,
		Metrics:    m,
		Opener:     CommandOpener{Command: cfg.Agent.OpenCommand},
		Logger:     logger,
	})
	if src, ok := notifier.(delivery.ActionSource); ok {
		actions := logging.Component(logger, "actions")
		src.OnAction(func(action string) {
			ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
			defer cancel()
			opened, err := server.RunAction(ctx, action)
			if err != nil {
				actions.Warn("notification action failed", "action", action, "err", err)
				return
			}
			actions.Debug("notification action", "action", action, "opened", opened)
		})
	}
	return &Agent{
		cfg:        cfg,
		store:      store,
		hub:        hub,
		metrics:    m,
		background: bg,
		server:     server,
		logger:     logging.Component(logger, "agent"),
	}
}

func (a *Agent) Handler() http.Handler {
	return a.server.Handler()
}

func (a *Agent) Background() *scheduler.Background {
	return a.background
}

// Run serves until ctx is done. The scheduler is armed on startup because a
// restarted agent has no pending timer.
func (a *Agent) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Agent.Addr)
	if err != nil {
		return fmt.Errorf("agent: listen %s: %w", a.cfg.Agent.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *Agent) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.background.RegisterPeriodic(a.cfg.Background.Periodic)
	a.background.Wake("startup")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("agent: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.background.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *Agent) Close() error {
	return a.store.Close()
}
