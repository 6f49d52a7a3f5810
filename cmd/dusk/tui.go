package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/scheduler"
	"github.com/sandeepkv93/dusk/internal/update"
)

func runTUI(parent context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closer, err := openLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := withSignals(parent)
	defer cancel()

	bridge := update.NewBridge(0, logger)
	board := delivery.NewToastBoard(cfg.Notifications.ToastDuration)
	board.OnShow(bridge.OnToast)

	fg := newForeground(cfg, logger, board)
	defer fg.close()

	poller := scheduler.NewForeground(fg.settings, fg.tasks, fg.router, scheduler.ForegroundConfig{
		Interval:   cfg.Foreground.PollInterval,
		Comparison: cfg.Comparison(),
		OnFire:     bridge.OnFire,
	}, logger)
	defer poller.Disable()

	ctrl := fg.controller(poller)
	if _, err := ctrl.Resume(ctx); err != nil {
		logger.Warn("resume reminders", "err", err)
	}

	// Bring a running agent up to date with this document.
	fg.settings.Push(ctx)
	fg.tasks.Push(ctx)
	go bridge.Follow(ctx, fg.client)

	model := update.NewModel(update.Deps{
		Context:    ctx,
		Tasks:      fg.service,
		Reminders:  ctrl,
		Reconciler: fg.settings,
		Poller:     poller,
		Toasts:     board,
		Events:     bridge.C(),
		Logger:     logger,
	})

	logger.Info("tui started", "kv", cfg.KVPath, "agent", cfg.AgentURL())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dusk tui: %w", err)
	}
	return nil
}
