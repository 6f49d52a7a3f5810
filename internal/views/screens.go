package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type TaskItemData struct {
	Title     string
	DueDate   string
	Important bool
	Completed bool
	DueToday  bool
}

type TaskPanelData struct {
	Items  []TaskItemData
	Cursor int
}

type ReminderPanelData struct {
	Enabled    bool
	TargetTime string
	StatusLine string
	LastFired  string
	Polling    bool
	Agent      string
	Permission string
}

type ToastData struct {
	Title string
	Body  string
	Level string
}

type HelpPanelData struct {
	Markdown string
	HelpView string
}

var (
	toastStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	toastTitle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	starStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

var toastBorder = map[string]lipgloss.Color{
	"info":    lipgloss.Color("12"),
	"success": lipgloss.Color("10"),
	"warning": lipgloss.Color("11"),
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString("tasks:\n")
	if len(data.Items) == 0 {
		b.WriteString(dimStyle.Render("(no tasks, press a to add one)"))
		return b.String()
	}
	for i, item := range data.Items {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		check := "[ ]"
		title := item.Title
		if item.Completed {
			check = "[x]"
			title = doneStyle.Render(title)
		}
		star := " "
		if item.Important {
			star = starStyle.Render("★")
		}
		line := fmt.Sprintf("%s %2d %s %s %s", cursor, i+1, check, star, title)
		if item.DueDate != "" {
			due := "due:" + item.DueDate
			if item.DueToday && !item.Completed {
				due = "due:today"
			}
			line += " " + dimStyle.Render(due)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderReminderPanel(data ReminderPanelData) string {
	var b strings.Builder
	b.WriteString("nightly reminder:\n")
	state := dimStyle.Render("off")
	if data.Enabled {
		state = onStyle.Render("on")
	}
	b.WriteString(fmt.Sprintf("state: %s  time: %s\n", state, data.TargetTime))
	b.WriteString(data.StatusLine + "\n")
	if data.LastFired != "" {
		b.WriteString(fmt.Sprintf("last fired: %s\n", data.LastFired))
	}
	if data.Polling {
		b.WriteString("checking: every minute while open\n")
	}
	if data.Agent != "" {
		b.WriteString(fmt.Sprintf("agent: %s\n", data.Agent))
	}
	if data.Permission != "" {
		b.WriteString(fmt.Sprintf("notifications: %s\n", data.Permission))
	}
	b.WriteString(dimStyle.Render("actions: [r]on/off [t]test [/remind at HH:MM]"))
	return b.String()
}

func RenderToast(data ToastData) string {
	if strings.TrimSpace(data.Title) == "" && strings.TrimSpace(data.Body) == "" {
		return ""
	}
	style := toastStyle
	if c, ok := toastBorder[data.Level]; ok {
		style = style.BorderForeground(c)
	}
	body := toastTitle.Render(data.Title)
	if data.Body != "" {
		body += "\n" + data.Body
	}
	return style.Render(body + "\n" + dimStyle.Render("[x] dismiss"))
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderHelpPanel(data HelpPanelData) string {
	parts := []string{"help:"}
	if md := RenderMarkdown(data.Markdown); md != "" {
		parts = append(parts, md)
	}
	if data.HelpView != "" {
		parts = append(parts, data.HelpView)
	}
	return strings.Join(parts, "\n")
}
