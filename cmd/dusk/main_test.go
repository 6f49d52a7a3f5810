package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "data_dir: " + dir + "\nagent:\n  addr: 127.0.0.1:1\nnotifications:\n  desktop: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"tui": false, "agent": false, "remind": false, "task": false, "push": false, "init": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestInitWritesConfigOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dusk", "config.yaml")
	if _, err := run(t, "--config", path, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := run(t, "--config", path, "init"); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, err := run(t, "--config", path, "init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestTaskCommandsEditDocument(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := run(t, "--config", cfg, "task", "add", "--due", "today", "-i", "pay", "rent"); err != nil {
		t.Fatalf("task add: %v", err)
	}
	out, err := run(t, "--config", cfg, "task", "list")
	if err != nil {
		t.Fatalf("task list: %v", err)
	}
	if !strings.Contains(out, "pay rent") || !strings.Contains(out, "due today") {
		t.Fatalf("unexpected list output: %q", out)
	}
	if _, err := run(t, "--config", cfg, "task", "done", "1"); err != nil {
		t.Fatalf("task done: %v", err)
	}
	out, _ = run(t, "--config", cfg, "task", "list")
	if !strings.Contains(out, "no tasks") {
		t.Fatalf("completed task should be hidden: %q", out)
	}
	out, _ = run(t, "--config", cfg, "task", "list", "--all")
	if !strings.Contains(out, "[x]") {
		t.Fatalf("expected completed task with --all: %q", out)
	}
	if _, err := run(t, "--config", cfg, "task", "rm", "7"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestRemindCommands(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "remind", "status")
	if err != nil {
		t.Fatalf("remind status: %v", err)
	}
	if !strings.Contains(out, "Enable notifications to get nightly reminders") || !strings.Contains(out, "not running") {
		t.Fatalf("unexpected status: %q", out)
	}

	if _, err := run(t, "--config", cfg, "remind", "at", "22:45"); err != nil {
		t.Fatalf("remind at: %v", err)
	}
	out, err = run(t, "--config", cfg, "remind", "enable")
	if err == nil {
		t.Fatal("enable must fail with desktop notifications off and no agent")
	}
	if !strings.Contains(out, delivery.BlockedTitle) {
		t.Fatalf("expected blocked notice, got %q", out)
	}

	out, _ = run(t, "--config", cfg, "remind")
	if !strings.Contains(out, "10:45 PM") {
		t.Fatalf("expected new time in status: %q", out)
	}
}

func TestPrintTasksNumbersByFullList(t *testing.T) {
	var out bytes.Buffer
	printTasks(&out, []model.Task{
		{ID: "a", Title: "done one", Completed: true},
		{ID: "b", Title: "open one"},
	}, false)
	if !strings.Contains(out.String(), "  2 [ ]") || strings.Contains(out.String(), "done one") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestConsoleToasterPrintsBody(t *testing.T) {
	var out bytes.Buffer
	consoleToaster{w: &out}.Toast("Reminder updated", "Notifications set for 9:30 PM", delivery.ToastInfo)
	if !strings.Contains(out.String(), "Reminder updated") || !strings.Contains(out.String(), "9:30 PM") {
		t.Fatalf("unexpected toast output: %q", out.String())
	}
}
