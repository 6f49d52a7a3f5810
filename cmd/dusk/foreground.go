package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/sandeepkv93/dusk/internal/config"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/reminders"
	"github.com/sandeepkv93/dusk/internal/storage"
	"github.com/sandeepkv93/dusk/internal/tasks"
)

func defaultConfigHint() string {
	return config.DefaultPath()
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

// openLogger writes to the configured log file, plus extra when given. The
// returned closer is never nil.
func openLogger(cfg config.Config, extra io.Writer) (*log.Logger, io.Closer, error) {
	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = f
	if extra != nil {
		w = io.MultiWriter(f, extra)
	}
	return logging.New(w, cfg.Log.Level), f, nil
}

func newNotifier(cfg config.Config) delivery.Notifier {
	if !cfg.Notifications.Desktop {
		return delivery.DisabledNotifier{}
	}
	return delivery.NewExecNotifier()
}

// foreground is everything a foreground process (TUI or CLI) shares: the KV
// document, the agent client used as peer and handler, and the reminder
// controller on top.
type foreground struct {
	cfg      config.Config
	logger   *log.Logger
	client   *agent.Client
	settings *storage.SyncedSettings
	tasks    *storage.SyncedTasks
	service  *tasks.Service
	router   *delivery.Router
	notifier delivery.Notifier
	toaster  delivery.Toaster
}

func newForeground(cfg config.Config, logger *log.Logger, toaster delivery.Toaster) *foreground {
	kv := storage.NewKVStore(cfg.KVPath)
	client := agent.NewClient(cfg.AgentURL())
	settings := storage.NewSyncedSettings(storage.NewKVSettingsRepository(kv), client, logging.Component(logger, "sync"))
	taskRepo := storage.NewSyncedTasks(storage.NewKVTaskRepository(kv), settings)
	notifier := newNotifier(cfg)

	opts := []delivery.RouterOption{
		delivery.WithHandler(client),
		delivery.WithLogger(logging.Component(logger, "delivery")),
	}
	if toaster != nil {
		opts = append(opts, delivery.WithToaster(toaster))
	}
	router := delivery.NewRouter(delivery.Foreground, notifier, opts...)

	return &foreground{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		settings: settings,
		tasks:    taskRepo,
		service:  tasks.NewService(taskRepo),
		router:   router,
		notifier: notifier,
		toaster:  toaster,
	}
}

// controller builds the reminder controller; the TUI passes its foreground
// scheduler as poller, the CLI passes nil.
func (f *foreground) controller(poller reminders.Poller) *reminders.Controller {
	return reminders.New(reminders.Deps{
		Settings: f.settings,
		Tasks:    f.tasks,
		Notifier: f.notifier,
		Handler:  f.client,
		Router:   f.router,
		Toaster:  f.toaster,
		Poller:   poller,
		Logger:   f.logger,
	})
}

// close waits for pending agent pushes so a short CLI invocation does not
// exit before the agent heard about its change.
func (f *foreground) close() {
	f.settings.Flush()
}

func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
