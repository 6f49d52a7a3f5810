package main

import (
	"os"

	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/spf13/cobra"
)

func agentCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the background reminder agent",
		Long: `Run the background context: it keeps its own copy of the reminder
settings and task snapshot, wakes itself to check the nightly reminder and
shows desktop notifications while no dusk window is open.

Run it under systemd --user or launchd so it is restarted when it exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Agent.Addr = addr
			}
			logger, closer, err := openLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := withSignals(cmd.Context())
			defer cancel()

			a, err := agent.Open(ctx, cfg, newNotifier(cfg), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info("agent starting", "store", cfg.Background.Store, "addr", cfg.Agent.Addr, "periodic", cfg.Background.Periodic)
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides agent.addr)")
	return cmd
}
