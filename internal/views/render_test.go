package views

import (
	"strings"
	"testing"
)

func TestRenderTaskPanel(t *testing.T) {
	out := RenderTaskPanel(TaskPanelData{
		Items: []TaskItemData{
			{Title: "pay rent", DueDate: "2026-02-09", DueToday: true},
			{Title: "water plants", Important: true},
		},
		Cursor: 1,
	})
	if !strings.Contains(out, "pay rent") || !strings.Contains(out, "due:today") {
		t.Fatalf("missing first task: %q", out)
	}
	if !strings.Contains(out, ">  2 [ ]") {
		t.Fatalf("cursor not on second task: %q", out)
	}

	empty := RenderTaskPanel(TaskPanelData{})
	if !strings.Contains(empty, "no tasks") {
		t.Fatalf("expected empty hint: %q", empty)
	}
}

func TestRenderReminderPanel(t *testing.T) {
	out := RenderReminderPanel(ReminderPanelData{
		Enabled:    true,
		TargetTime: "9:00 PM",
		StatusLine: "Reminder set for 9:00 PM every night",
		LastFired:  "2026-02-09",
		Agent:      "connected",
	})
	for _, want := range []string{"time: 9:00 PM", "Reminder set for 9:00 PM every night", "last fired: 2026-02-09", "agent: connected"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestRenderToast(t *testing.T) {
	if RenderToast(ToastData{}) != "" {
		t.Fatal("empty toast should render nothing")
	}
	out := RenderToast(ToastData{Title: "Nightly Reminder", Body: "You have 2 pending tasks", Level: "info"})
	if !strings.Contains(out, "Nightly Reminder") || !strings.Contains(out, "You have 2 pending tasks") {
		t.Fatalf("unexpected toast: %q", out)
	}
}

func TestRenderAppSections(t *testing.T) {
	out := RenderApp(AppData{
		Header:     "dusk",
		LeftPane:   "left",
		RightPane:  "right",
		StatusLine: "saved",
		Toast:      "TOAST",
		Footer:     "keys",
	})
	for _, want := range []string{"dusk", "left", "right", "saved", "TOAST", "keys"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %q", want, out)
		}
	}
	if RenderCommandPalette(false, "x") != "" {
		t.Fatal("inactive palette should render nothing")
	}
}
