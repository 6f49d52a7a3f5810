package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/tasks"
	"github.com/spf13/cobra"
)

func taskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Edit the task list without opening the TUI",
	}

	var due string
	var important bool
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, opts, func(ctx context.Context, w io.Writer, s *tasks.Service) error {
				t, err := s.Add(ctx, strings.Join(args, " "), due, important)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "added %s %s\n", dimColor.Sprint(shortID(t.ID)), t.Title)
				return nil
			})
		},
	}
	add.Flags().StringVar(&due, "due", "", "due date: today, tomorrow or YYYY-MM-DD")
	add.Flags().BoolVarP(&important, "important", "i", false, "mark important")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTasks(cmd, opts, func(ctx context.Context, w io.Writer, s *tasks.Service) error {
				items, err := s.List(ctx)
				if err != nil {
					return err
				}
				printTasks(w, items, all)
				return nil
			})
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")

	done := &cobra.Command{
		Use:   "done <n|id>",
		Short: "Toggle a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, opts, func(ctx context.Context, w io.Writer, s *tasks.Service) error {
				t, err := s.ToggleDone(ctx, args[0])
				if err != nil {
					return err
				}
				state := "reopened"
				if t.Completed {
					state = okColor.Sprint("completed")
				}
				fmt.Fprintf(w, "%s %s\n", state, t.Title)
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <n|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, opts, func(ctx context.Context, w io.Writer, s *tasks.Service) error {
				t, err := s.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "deleted %s\n", t.Title)
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, done, rm)
	return cmd
}

func withTasks(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, w io.Writer, s *tasks.Service) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closer, err := openLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	fg := newForeground(cfg, logger, consoleToaster{w: cmd.OutOrStdout()})
	defer fg.close()
	return fn(cmd.Context(), cmd.OutOrStdout(), fg.service)
}

// printTasks numbers rows by their position in the full list so the numbers
// work as arguments to done and rm.
func printTasks(w io.Writer, items []model.Task, all bool) {
	today := model.DateString(timeNow())
	shown := 0
	for i, t := range items {
		if t.Completed && !all {
			continue
		}
		shown++
		check := "[ ]"
		title := t.Title
		if t.Completed {
			check = "[x]"
			title = dimColor.Sprint(title)
		}
		star := " "
		if t.Important {
			star = warnColor.Sprint("*")
		}
		line := fmt.Sprintf("%3d %s %s %s", i+1, check, star, title)
		switch {
		case t.DueOn(today) && !t.Completed:
			line += " " + warnColor.Sprint("due today")
		case t.DueDate != "":
			line += " " + dimColor.Sprint("due "+t.DueDate)
		}
		fmt.Fprintln(w, line)
	}
	if shown == 0 {
		dimColor.Fprintln(w, "no tasks")
		return
	}
	c := tasks.Count(items, today)
	dimColor.Fprintf(w, "%d pending, %d due today, %d important\n", c.Pending, c.DueToday, c.Important)
}

var timeNow = time.Now

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
