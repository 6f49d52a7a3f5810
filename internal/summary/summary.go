package summary

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/dusk/internal/model"
)

const (
	Title            = "Dusk — Nightly Reminder"
	AllDoneMessage   = "🎉 All tasks completed! Great job today!"
	AllDoneToastLine = "All tasks completed! Enjoy your evening 🌙"

	clauseSeparator = " • "
	listThreshold   = 3
)

// Summarize builds the reminder body from the task list as seen on today.
// It is pure: the same tasks and date always produce the same text.
func Summarize(tasks []model.Task, today string) string {
	pending := 0
	dueToday := 0
	important := 0
	titles := make([]string, 0, listThreshold)
	for _, task := range tasks {
		if !task.Pending() {
			continue
		}
		pending++
		if task.DueOn(today) {
			dueToday++
		}
		if task.Important {
			important++
		}
		if len(titles) < listThreshold {
			titles = append(titles, task.Title)
		}
	}
	if pending == 0 {
		return AllDoneMessage
	}

	parts := make([]string, 0, 3)
	if dueToday > 0 {
		parts = append(parts, fmt.Sprintf("%d due today", dueToday))
	}
	if important > 0 {
		parts = append(parts, fmt.Sprintf("%d important", important))
	}
	parts = append(parts, fmt.Sprintf("%d total pending", pending))

	var b strings.Builder
	b.WriteString("📋 ")
	b.WriteString(strings.Join(parts, clauseSeparator))
	if pending <= listThreshold {
		for _, title := range titles {
			b.WriteString("\n• ")
			b.WriteString(title)
		}
	}
	return b.String()
}

// ToastLine is the one-line variant shown inside the app.
func ToastLine(tasks []model.Task) string {
	pending := 0
	for _, task := range tasks {
		if task.Pending() {
			pending++
		}
	}
	if pending == 0 {
		return AllDoneToastLine
	}
	suffix := "s"
	if pending == 1 {
		suffix = ""
	}
	return fmt.Sprintf("You have %d pending task%s", pending, suffix)
}
