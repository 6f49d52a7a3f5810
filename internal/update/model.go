package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/agent"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	domainmodel "github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/reminders"
	"github.com/sandeepkv93/dusk/internal/scheduler"
	"github.com/sandeepkv93/dusk/internal/tasks"
)

const toastRefreshInterval = time.Second

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Up      string
	Down    string
	Toggle  string
	Star    string
	Delete  string
	Add     string
	Remind  string
	Test    string
	Dismiss string
	Reload  string
	Help    string
	Quit    string
}

func DefaultKeyMap() GlobalKeyMap {
	return GlobalKeyMap{
		Up:      "k",
		Down:    "j",
		Toggle:  " ",
		Star:    "s",
		Delete:  "d",
		Add:     "a",
		Remind:  "r",
		Test:    "t",
		Dismiss: "x",
		Reload:  "R",
		Help:    "?",
		Quit:    "q",
	}
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// Reconciler adopts a fire the agent recorded while the TUI was running.
type Reconciler interface {
	Reconcile(ctx context.Context, remote domainmodel.ReminderSettings) (bool, error)
}

// Poller reports whether the foreground scheduler is currently polling.
type Poller interface {
	State() scheduler.State
}

type Deps struct {
	Context    context.Context
	Tasks      *tasks.Service
	Reminders  *reminders.Controller
	Reconciler Reconciler
	Poller     Poller
	Toasts     *delivery.ToastBoard
	Events     <-chan tea.Msg
	Now        func() time.Time
	Logger     *log.Logger
}

type Model struct {
	Tasks          []domainmodel.Task
	Cursor         int
	Reminder       reminders.Status
	Toast          *delivery.Toast
	AgentConnected bool
	Palette        CommandPaletteState
	HelpVisible    bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error

	deps         Deps
	logger       *log.Logger
	width        int
	commandInput textinput.Model
	helpModel    help.Model
	helpRendered string
}

// Messages delivered to the program from outside the update loop.
type (
	TickMsg struct {
		At time.Time
	}
	FireMsg struct {
		Fire scheduler.Fire
	}
	ToastMsg struct {
		Toast delivery.Toast
	}
	AgentEventMsg struct {
		Event agent.Event
	}
	AgentStateMsg struct {
		Connected bool
		Err       error
	}
	SetStatusMsg struct {
		Text    string
		IsError bool
	}
	ClearStatusMsg struct{}
	AppErrorMsg    struct {
		Err error
	}
	ReloadMsg struct{}
)

func NewModel(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Toasts == nil {
		deps.Toasts = delivery.NewToastBoard(delivery.DefaultToastDuration)
	}
	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "add pay rent due:today !"
	input.CharLimit = 200

	m := Model{
		Keys:         DefaultKeyMap(),
		deps:         deps,
		logger:       logging.Component(deps.Logger, "tui"),
		commandInput: input,
		helpModel:    help.New(),
	}
	m.reload()
	return m
}

func (m *Model) ctx() context.Context {
	return m.deps.Context
}

// reload re-reads tasks and reminder settings; the KV document may have been
// changed by a CLI invocation or by a reconcile.
func (m *Model) reload() {
	if m.deps.Tasks != nil {
		list, err := m.deps.Tasks.List(m.ctx())
		if err != nil {
			m.setError(err)
		} else {
			m.Tasks = list
		}
	}
	if m.Cursor >= len(m.Tasks) {
		m.Cursor = len(m.Tasks) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.refreshReminder()
}

func (m *Model) refreshReminder() {
	if m.deps.Reminders == nil {
		m.Reminder = reminders.Status{Settings: domainmodel.DefaultReminderSettings()}
		return
	}
	st, err := m.deps.Reminders.Status(m.ctx())
	if err != nil {
		m.logger.Warn("reminder settings unreadable", "err", err)
	}
	m.Reminder = st
}

func (m *Model) refreshToast(now time.Time) {
	if t, ok := m.deps.Toasts.Active(now); ok {
		m.Toast = &t
		return
	}
	m.Toast = nil
}

func (m *Model) setStatus(text string) {
	m.Status = StatusBar{Text: text}
}

func (m *Model) setError(err error) {
	m.LastError = err
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	}
}

func (m Model) selected() (domainmodel.Task, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Tasks) {
		return domainmodel.Task{}, false
	}
	return m.Tasks[m.Cursor], true
}

func tickCmd() tea.Cmd {
	return tea.Tick(toastRefreshInterval, func(at time.Time) tea.Msg { return TickMsg{At: at} })
}

func waitForEventCmd(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
