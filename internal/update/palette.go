package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/dusk/internal/commands"
)

func (m Model) openPalette(prefill string) Model {
	m.Palette.Active = true
	m.Palette.Input = prefill
	m.commandInput.SetValue(prefill)
	m.commandInput.CursorEnd()
	m.commandInput.Focus()
	m.setStatus("command palette active")
	return m
}

func (m Model) closePalette() Model {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	return m
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m = m.closePalette()
		m.setStatus("command palette closed")
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.commandInput.CursorEnd()
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		m.commandInput, _ = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m = m.closePalette()
		m.setError(err)
		return m
	}

	ctx := m.ctx()
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			task, err := m.deps.Tasks.Add(ctx, a.Title, a.Due, a.Important)
			if err != nil {
				return commands.Result{}, err
			}
			m.Cursor = 0
			return commands.Result{Message: fmt.Sprintf("added: %s", task.Title)}, nil
		},
		Done: func(a commands.TaskArgs) (commands.Result, error) {
			task, err := m.deps.Tasks.ToggleDone(ctx, a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if task.Completed {
				return commands.Result{Message: fmt.Sprintf("completed: %s", task.Title)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("reopened: %s", task.Title)}, nil
		},
		Remove: func(a commands.TaskArgs) (commands.Result, error) {
			task, err := m.deps.Tasks.Remove(ctx, a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted: %s", task.Title)}, nil
		},
		Important: func(a commands.TaskArgs) (commands.Result, error) {
			task, err := m.deps.Tasks.ToggleImportant(ctx, a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if task.Important {
				return commands.Result{Message: fmt.Sprintf("starred: %s", task.Title)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("unstarred: %s", task.Title)}, nil
		},
		Remind: func(a commands.RemindArgs) (commands.Result, error) {
			return m.remind(a)
		},
		Help: func() (commands.Result, error) {
			if !m.HelpVisible {
				m.toggleHelp()
			}
			return commands.Result{Message: "help shown"}, nil
		},
	})

	m = m.closePalette()
	if err != nil {
		m.setError(err)
	} else {
		m.setStatus(res.Message)
	}
	m.reload()
	m.refreshToast(m.deps.Now())
	return m
}
