package update

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/dusk/internal/views"
)

const helpMarkdown = `
## commands

- ` + "`add <title> [due:today] [!]`" + ` add a task; due takes today, tomorrow or YYYY-MM-DD and ` + "`!`" + ` marks it important
- ` + "`done <n>`" + ` toggle completed, by list number or id prefix
- ` + "`star <n>`" + ` toggle important
- ` + "`rm <n>`" + ` delete
- ` + "`remind on`" + ` / ` + "`remind off`" + ` enable or disable the nightly reminder
- ` + "`remind at 21:30`" + ` change the reminder time
- ` + "`remind test`" + ` send tonight's summary now
`

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m *Model) toggleHelp() {
	m.HelpVisible = !m.HelpVisible
	if m.HelpVisible {
		if m.helpRendered == "" {
			m.helpRendered = views.RenderMarkdown(helpMarkdown)
		}
		m.setStatus("help shown")
		return
	}
	m.setStatus("help hidden")
}

func (m Model) renderHelpView() string {
	taskKeys, reminderKeys := m.helpBindings()
	h := m.helpModel
	h.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		Markdown: m.helpRendered,
		HelpView: h.View(helpKeyMap{short: taskKeys, full: [][]key.Binding{taskKeys, reminderKeys}}),
	})
}

func (m Model) taskBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Down + "/" + m.Keys.Up, Action: "move"},
		{Key: "space", Action: "toggle done"},
		{Key: m.Keys.Star, Action: "toggle important"},
		{Key: m.Keys.Delete, Action: "delete"},
		{Key: m.Keys.Add, Action: "add task"},
		{Key: "/", Action: "command palette"},
	}
}

func (m Model) reminderBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Remind, Action: "reminder on/off"},
		{Key: m.Keys.Test, Action: "test reminder"},
		{Key: m.Keys.Dismiss, Action: "dismiss toast"},
		{Key: m.Keys.Reload, Action: "reload"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) helpBindings() ([]key.Binding, []key.Binding) {
	return toKeyBindings(m.taskBindings()), toKeyBindings(m.reminderBindings())
}

func toKeyBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
