package main

import (
	"fmt"

	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/spf13/cobra"
)

func pushCmd(opts *rootOptions) *cobra.Command {
	var payload agent.PushPayload
	var action string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Ask the agent to show a notification now",
		Long: `Send a push to the running agent. Empty fields fall back to the nightly
reminder title and "Check your pending tasks!". With --action the command
instead replays a notification action (open or dismiss).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client := agent.NewClient(cfg.AgentURL())
			if action != "" {
				if err := client.Action(cmd.Context(), action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "action %s sent\n", okColor.Sprint(action))
				return nil
			}
			if err := client.Push(cmd.Context(), payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "push %s\n", okColor.Sprint("delivered"))
			return nil
		},
	}
	cmd.Flags().StringVar(&payload.Title, "title", "", "notification title")
	cmd.Flags().StringVar(&payload.Body, "body", "", "notification body")
	cmd.Flags().StringVar(&payload.Icon, "icon", "", "notification icon")
	cmd.Flags().StringVar(&action, "action", "", "replay a notification action: open or dismiss")
	return cmd
}
