package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/sandeepkv93/dusk/internal/delivery"
	domainmodel "github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/reminders"
	"github.com/sandeepkv93/dusk/internal/scheduler"
	"github.com/sandeepkv93/dusk/internal/summary"
	"github.com/sandeepkv93/dusk/internal/tasks"
	"github.com/sandeepkv93/dusk/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEventCmd(m.deps.Events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.helpModel.Width = typed.Width
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		return m.handleKey(typed)
	case TickMsg:
		m.refreshToast(typed.At)
		return m, tickCmd()
	case ToastMsg:
		m.refreshToast(m.deps.Now())
		return m, waitForEventCmd(m.deps.Events)
	case FireMsg:
		m.onFire(typed.Fire.Result, typed.Fire.Tasks)
		return m, waitForEventCmd(m.deps.Events)
	case AgentEventMsg:
		m.onAgentEvent(typed.Event)
		return m, waitForEventCmd(m.deps.Events)
	case AgentStateMsg:
		m.AgentConnected = typed.Connected
		if !typed.Connected && typed.Err != nil {
			m.logger.Debug("agent stream down", "err", typed.Err)
		}
		m.refreshReminder()
		return m, waitForEventCmd(m.deps.Events)
	case ReloadMsg:
		m.reload()
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.setError(typed.Err)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/":
		return m.openPalette(""), nil
	case m.Keys.Add:
		return m.openPalette("add "), nil
	case m.Keys.Down, "down":
		if m.Cursor < len(m.Tasks)-1 {
			m.Cursor++
		}
	case m.Keys.Up, "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case m.Keys.Toggle, "enter":
		m.editSelected(m.deps.Tasks.ToggleDone, "completed", "reopened", func(t domainmodel.Task) bool { return t.Completed })
	case m.Keys.Star:
		m.editSelected(m.deps.Tasks.ToggleImportant, "starred", "unstarred", func(t domainmodel.Task) bool { return t.Important })
	case m.Keys.Delete:
		m.removeSelected()
	case m.Keys.Remind:
		m.toggleReminders()
	case m.Keys.Test:
		m.testReminder()
	case m.Keys.Dismiss:
		m.deps.Toasts.Dismiss()
		m.Toast = nil
	case m.Keys.Reload:
		m.reload()
		m.setStatus("reloaded")
	case m.Keys.Help:
		m.toggleHelp()
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// onFire runs after the foreground scheduler dispatched tonight's reminder.
// A toast dispatch is already on the board; a persistent one gets the short
// in-app line in the status bar.
func (m *Model) onFire(res delivery.Result, list []domainmodel.Task) {
	if res.Persistent() {
		m.setStatus("Nightly Reminder: " + summary.ToastLine(list))
	}
	m.refreshToast(m.deps.Now())
	m.reload()
}

func (m *Model) onAgentEvent(ev agent.Event) {
	m.AgentConnected = true
	switch ev.Type {
	case agent.EventSettingsChanged:
		if ev.Settings == nil || m.deps.Reconciler == nil {
			break
		}
		adopted, err := m.deps.Reconciler.Reconcile(m.ctx(), *ev.Settings)
		if err != nil {
			m.setError(err)
			break
		}
		if adopted {
			m.logger.Info("adopted background fire", "date", ev.Settings.LastFiredDate)
		}
		m.refreshReminder()
	case agent.EventToast:
		m.deps.Toasts.Toast(ev.Title, ev.Body, delivery.ToastLevel(ev.Level))
		m.refreshToast(m.deps.Now())
	case agent.EventFocus:
		m.reload()
		m.setStatus("opened from reminder notification")
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	left := views.RenderTaskPanel(m.taskPanelData())
	if palette := views.RenderCommandPalette(m.Palette.Active, m.commandInput.View()); palette != "" {
		left += "\n\n" + palette
	}
	right := views.RenderReminderPanel(m.reminderPanelData())
	if m.HelpVisible {
		right += "\n\n" + m.renderHelpView()
	}

	toast := ""
	if m.Toast != nil {
		toast = views.RenderToast(views.ToastData{Title: m.Toast.Title, Body: m.Toast.Body, Level: string(m.Toast.Level)})
	}

	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	return views.RenderApp(views.AppData{
		Header:     m.header(),
		LeftPane:   left,
		RightPane:  right,
		StatusLine: status,
		IsError:    m.Status.IsError,
		Toast:      toast,
		Footer:     m.footer(),
		Width:      m.width,
	})
}

func (m Model) header() string {
	counts := tasks.Count(m.Tasks, domainmodel.DateString(m.deps.Now()))
	reminder := "off"
	if m.Reminder.Settings.Enabled {
		reminder = domainmodel.Format12h(m.Reminder.Settings.TargetTime)
	}
	return fmt.Sprintf("dusk | %d pending | %d due today | %d important | reminder: %s",
		counts.Pending, counts.DueToday, counts.Important, reminder)
}

func (m Model) footer() string {
	return fmt.Sprintf("keys: %s/%s move | space done | %s star | %s delete | %s add | %s reminder | %s test | %s dismiss | / cmd | %s help | %s quit",
		m.Keys.Down, m.Keys.Up, m.Keys.Star, m.Keys.Delete, m.Keys.Add, m.Keys.Remind, m.Keys.Test, m.Keys.Dismiss, m.Keys.Help, m.Keys.Quit)
}

func (m Model) taskPanelData() views.TaskPanelData {
	today := domainmodel.DateString(m.deps.Now())
	items := make([]views.TaskItemData, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		items = append(items, views.TaskItemData{
			Title:     t.Title,
			DueDate:   t.DueDate,
			Important: t.Important,
			Completed: t.Completed,
			DueToday:  t.DueOn(today),
		})
	}
	return views.TaskPanelData{Items: items, Cursor: m.Cursor}
}

func (m Model) reminderPanelData() views.ReminderPanelData {
	s := m.Reminder.Settings
	data := views.ReminderPanelData{
		Enabled:    s.Enabled,
		TargetTime: domainmodel.Format12h(s.TargetTime),
		StatusLine: reminders.StatusLine(s),
		LastFired:  s.LastFiredDate,
		Permission: string(m.Reminder.Permission),
	}
	if m.deps.Poller != nil {
		data.Polling = m.deps.Poller.State() == scheduler.Polling
	}
	switch {
	case m.AgentConnected:
		data.Agent = "connected"
	case m.Reminder.AgentActive:
		data.Agent = "running"
	default:
		data.Agent = "not running (reminders only fire while dusk is open)"
	}
	return data
}

func (m *Model) editSelected(fn func(ctx context.Context, target string) (domainmodel.Task, error), on, off string, flag func(domainmodel.Task) bool) {
	task, ok := m.selected()
	if !ok {
		return
	}
	updated, err := fn(m.ctx(), task.ID)
	if err != nil {
		m.setError(err)
		return
	}
	verb := off
	if flag(updated) {
		verb = on
	}
	m.setStatus(fmt.Sprintf("%s: %s", verb, strings.TrimSpace(updated.Title)))
	m.reload()
}

func (m *Model) removeSelected() {
	task, ok := m.selected()
	if !ok {
		return
	}
	removed, err := m.deps.Tasks.Remove(m.ctx(), task.ID)
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus("deleted: " + removed.Title)
	m.reload()
}
