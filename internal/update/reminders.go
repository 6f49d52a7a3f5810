package update

import (
	"fmt"

	"github.com/sandeepkv93/dusk/internal/commands"
	"github.com/sandeepkv93/dusk/internal/delivery"
	domainmodel "github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/reminders"
)

func (m *Model) toggleReminders() {
	action := commands.RemindOn
	if m.Reminder.Settings.Enabled {
		action = commands.RemindOff
	}
	res, err := m.remind(commands.RemindArgs{Action: action})
	if err != nil {
		m.setError(err)
	} else {
		m.setStatus(res.Message)
	}
	m.refreshToast(m.deps.Now())
}

func (m *Model) testReminder() {
	res, err := m.remind(commands.RemindArgs{Action: commands.RemindTest})
	if err != nil {
		m.setError(err)
	} else {
		m.setStatus(res.Message)
	}
	m.refreshToast(m.deps.Now())
}

func (m *Model) remind(a commands.RemindArgs) (commands.Result, error) {
	ctrl := m.deps.Reminders
	if ctrl == nil {
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: "reminders are not configured"}
	}
	ctx := m.ctx()
	defer m.refreshReminder()

	switch a.Action {
	case commands.RemindOn:
		s, err := ctrl.Enable(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("reminders on at %s", domainmodel.Format12h(s.TargetTime))}, nil
	case commands.RemindOff:
		if _, err := ctrl.Disable(ctx); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: "reminders off"}, nil
	case commands.RemindAt:
		s, err := ctrl.SetTime(ctx, a.Time)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("reminder time set to %s", domainmodel.Format12h(s.TargetTime))}, nil
	case commands.RemindTest:
		res := ctrl.Test(ctx)
		if res.Channel == delivery.ChannelNone {
			return commands.Result{}, fmt.Errorf("test reminder not delivered: %v", res.Err)
		}
		return commands.Result{Message: fmt.Sprintf("test reminder sent (%s)", res.Channel)}, nil
	default:
		st, err := ctrl.Status(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: reminders.StatusLine(st.Settings)}, nil
	}
}
