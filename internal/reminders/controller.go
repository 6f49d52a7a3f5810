package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/storage"
	"github.com/sandeepkv93/dusk/internal/summary"
)

var ErrNotificationsUnavailable = errors.New("reminders: notifications unavailable")

const (
	EnabledTitle = "Notifications enabled"
	UpdatedTitle = "Reminder updated"

	blockedHint     = "Allow desktop notifications for Dusk and enable reminders again."
	unsupportedHint = "No notify-send or osascript was found on this system."
)

// Poller is the foreground scheduler as seen by the controller. The CLI runs
// without one; the agent covers it between TUI sessions.
type Poller interface {
	Enable(ctx context.Context)
	Disable()
}

type Deps struct {
	Settings storage.SettingsRepository
	Tasks    storage.TaskSource
	Notifier delivery.Notifier
	Handler  delivery.Handler
	Router   *delivery.Router
	Toaster  delivery.Toaster
	Poller   Poller
	Now      func() time.Time
	Logger   *log.Logger
}

// Controller owns the user-facing reminder flows of the foreground context:
// enabling with a permission check, changing the time, disabling and the
// manual test trigger.
type Controller struct {
	d      Deps
	logger *log.Logger
}

func New(d Deps) *Controller {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Controller{d: d, logger: logging.Component(d.Logger, "reminders")}
}

type Status struct {
	Settings    model.ReminderSettings
	Permission  delivery.Permission
	AgentActive bool
}

// Line is the one-line description shown under the reminder toggle.
func (s Status) Line() string {
	return StatusLine(s.Settings)
}

func StatusLine(s model.ReminderSettings) string {
	if !s.Enabled {
		return "Enable notifications to get nightly reminders"
	}
	return fmt.Sprintf("Reminder set for %s every night", model.Format12h(s.TargetTime))
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	settings, err := c.d.Settings.ReadSettings(ctx)
	st := Status{Settings: settings}
	st.AgentActive = c.d.Handler != nil && c.d.Handler.Active(ctx)
	st.Permission = c.permission(st.AgentActive)
	return st, err
}

// Resume starts polling when the stored settings are enabled. The TUI calls
// it once at startup.
func (c *Controller) Resume(ctx context.Context) (model.ReminderSettings, error) {
	settings, err := c.d.Settings.ReadSettings(ctx)
	if err != nil {
		c.logger.Warn("settings unreadable at startup", "err", err)
	}
	if settings.Enabled && c.d.Poller != nil {
		c.d.Poller.Enable(ctx)
	}
	return settings, nil
}

// Enable turns reminders on. Without a usable notification channel it shows
// why in a toast and leaves reminders disabled.
func (c *Controller) Enable(ctx context.Context) (model.ReminderSettings, error) {
	settings, err := c.d.Settings.ReadSettings(ctx)
	if err != nil {
		c.logger.Warn("settings unreadable, enabling over defaults", "err", err)
	}

	active := c.d.Handler != nil && c.d.Handler.Active(ctx)
	switch perm := c.permission(active); perm {
	case delivery.PermissionGranted:
	case delivery.PermissionUnsupported:
		c.toast(delivery.UnsupportedTitle, unsupportedHint, delivery.ToastWarning)
		return settings, fmt.Errorf("%w: %s", ErrNotificationsUnavailable, perm)
	default:
		c.toast(delivery.BlockedTitle, blockedHint, delivery.ToastWarning)
		return settings, fmt.Errorf("%w: %s", ErrNotificationsUnavailable, perm)
	}

	settings.Enabled = true
	if err := c.d.Settings.WriteSettings(ctx, settings); err != nil {
		return settings, err
	}
	if c.d.Router != nil {
		c.d.Router.ResetReport()
	}
	if c.d.Poller != nil {
		c.d.Poller.Enable(ctx)
	}
	c.logger.Info("reminders enabled", "target", settings.TargetTime)
	c.toast(EnabledTitle, fmt.Sprintf("You'll get reminders at %s", model.Format12h(settings.TargetTime)), delivery.ToastSuccess)
	return settings, nil
}

func (c *Controller) Disable(ctx context.Context) (model.ReminderSettings, error) {
	if c.d.Poller != nil {
		c.d.Poller.Disable()
	}
	settings, err := c.d.Settings.ReadSettings(ctx)
	if err != nil {
		c.logger.Warn("settings unreadable, disabling over defaults", "err", err)
	}
	settings.Enabled = false
	if err := c.d.Settings.WriteSettings(ctx, settings); err != nil {
		return settings, err
	}
	c.logger.Info("reminders disabled")
	return settings, nil
}

// SetTime stores a new target time and clears lastFiredDate so the reminder
// can fire again today at the new time.
func (c *Controller) SetTime(ctx context.Context, target string) (model.ReminderSettings, error) {
	settings, err := c.d.Settings.ReadSettings(ctx)
	if err != nil {
		c.logger.Warn("settings unreadable, updating defaults", "err", err)
	}
	next, err := settings.WithTargetTime(target)
	if err != nil {
		return settings, err
	}
	if err := c.d.Settings.WriteSettings(ctx, next); err != nil {
		return settings, err
	}
	c.logger.Info("reminder time changed", "from", settings.TargetTime, "to", next.TargetTime)
	if next.Enabled {
		c.toast(UpdatedTitle, fmt.Sprintf("Notifications set for %s", model.Format12h(next.TargetTime)), delivery.ToastInfo)
	}
	return next, nil
}

// Test sends today's summary right away. It does not count as the nightly
// fire: lastFiredDate is left alone.
func (c *Controller) Test(ctx context.Context) delivery.Result {
	var tasks []model.Task
	if c.d.Tasks != nil {
		var err error
		if tasks, err = c.d.Tasks.ListTasks(ctx); err != nil {
			c.logger.Warn("tasks unreadable, testing with empty summary", "err", err)
			tasks = nil
		}
	}
	body := summary.Summarize(tasks, model.DateString(c.d.Now()))
	if c.d.Router == nil {
		return delivery.Result{Channel: delivery.ChannelNone, Err: delivery.ErrUnsupported}
	}
	res := c.d.Router.Dispatch(ctx, summary.Title, body)
	c.logger.Info("test reminder sent", "channel", res.Channel)
	return res
}

func (c *Controller) permission(agentActive bool) delivery.Permission {
	if agentActive {
		return delivery.PermissionGranted
	}
	if c.d.Notifier == nil {
		return delivery.PermissionUnsupported
	}
	return c.d.Notifier.Permission()
}

func (c *Controller) toast(title, body string, level delivery.ToastLevel) {
	if c.d.Toaster == nil {
		return
	}
	c.d.Toaster.Toast(title, body, level)
}
