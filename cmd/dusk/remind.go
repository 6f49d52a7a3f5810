package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/reminders"
	"github.com/spf13/cobra"
)

func remindCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Show or change the nightly reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, printStatus)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show reminder settings and agent state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, printStatus)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Turn the nightly reminder on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(ctx context.Context, w io.Writer, c *reminders.Controller) error {
				_, err := c.Enable(ctx)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Turn the nightly reminder off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(ctx context.Context, w io.Writer, c *reminders.Controller) error {
				if _, err := c.Disable(ctx); err != nil {
					return err
				}
				fmt.Fprintf(w, "reminder %s\n", onOff(false))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "at HH:MM",
		Short: "Change the reminder time (24-hour clock)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(ctx context.Context, w io.Writer, c *reminders.Controller) error {
				s, err := c.SetTime(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "reminder time %s\n", titleColor.Sprint(model.Format12h(s.TargetTime)))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send tonight's summary now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(ctx context.Context, w io.Writer, c *reminders.Controller) error {
				res := c.Test(ctx)
				if res.Channel == delivery.ChannelNone {
					return fmt.Errorf("test reminder not delivered: %v", res.Err)
				}
				fmt.Fprintf(w, "test reminder sent via %s\n", okColor.Sprint(res.Channel))
				return nil
			})
		},
	})
	return cmd
}

func withController(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, w io.Writer, c *reminders.Controller) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closer, err := openLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	w := cmd.OutOrStdout()
	fg := newForeground(cfg, logger, consoleToaster{w: w})
	defer fg.close()
	return fn(cmd.Context(), w, fg.controller(nil))
}

func printStatus(ctx context.Context, w io.Writer, c *reminders.Controller) error {
	st, err := c.Status(ctx)
	if err != nil {
		warnColor.Fprintf(w, "settings unreadable, showing defaults: %v\n", err)
	}
	s := st.Settings
	fmt.Fprintf(w, "reminder:      %s at %s\n", onOff(s.Enabled), titleColor.Sprint(model.Format12h(s.TargetTime)))
	fmt.Fprintf(w, "               %s\n", st.Line())
	last := s.LastFiredDate
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(w, "last fired:    %s\n", last)
	fmt.Fprintf(w, "notifications: %s\n", st.Permission)
	if st.AgentActive {
		fmt.Fprintf(w, "agent:         %s\n", okColor.Sprint("running"))
	} else {
		fmt.Fprintf(w, "agent:         %s\n", errColor.Sprint("not running"))
		dimColor.Fprintln(w, "               reminders only fire while dusk is open; start `dusk agent` to cover the rest")
	}
	return nil
}
