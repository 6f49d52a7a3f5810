package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/summary"
)

const (
	MessageSyncSettings     = "SYNC_SETTINGS"
	MessageSyncTasks        = "SYNC_TASKS"
	MessageShowNotification = "SHOW_NOTIFICATION"

	EventSettingsChanged = "SETTINGS_CHANGED"
	EventToast           = "TOAST"
	EventFocus           = "FOCUS"

	defaultManualTitle = "Dusk"
	defaultManualBody  = "Check your tasks!"
	defaultPushBody    = "Check your pending tasks!"
)

var ErrUnknownMessage = errors.New("agent: unknown message type")

// Message is what the foreground posts to /v1/messages.
type Message struct {
	Type          string                  `json:"type"`
	Settings      *model.ReminderSettings `json:"settings,omitempty"`
	TargetChanged bool                    `json:"targetChanged,omitempty"`
	Tasks         []model.Task            `json:"tasks,omitempty"`
	Title         string                  `json:"title,omitempty"`
	Body          string                  `json:"body,omitempty"`
}

func (m Message) Validate() error {
	switch m.Type {
	case MessageSyncSettings:
		if m.Settings == nil {
			return errors.New("agent: SYNC_SETTINGS without settings")
		}
		return m.Settings.Validate()
	case MessageSyncTasks:
		for _, t := range m.Tasks {
			if err := t.Validate(); err != nil {
				return err
			}
		}
		return nil
	case MessageShowNotification:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}

// Event is what the agent streams to connected foregrounds.
type Event struct {
	Type     string                  `json:"type"`
	Settings *model.ReminderSettings `json:"settings,omitempty"`
	Title    string                  `json:"title,omitempty"`
	Body     string                  `json:"body,omitempty"`
	Level    string                  `json:"level,omitempty"`
}

func SettingsChanged(s model.ReminderSettings) Event {
	return Event{Type: EventSettingsChanged, Settings: &s}
}

// PushPayload is the optional remote-triggered notification body.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
}

// ParsePush merges what parses over the defaults. A body that is not a JSON
// object becomes the notification text.
func ParsePush(raw []byte) delivery.Notification {
	n := delivery.NewReminder(summary.Title, defaultPushBody)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return n
	}
	var p PushPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		n.Body = string(trimmed)
		return n
	}
	if strings.TrimSpace(p.Title) != "" {
		n.Title = p.Title
	}
	if strings.TrimSpace(p.Body) != "" {
		n.Body = p.Body
	}
	if p.Icon != "" {
		n.Icon = p.Icon
	}
	if p.Badge != "" {
		n.Badge = p.Badge
	}
	return n
}

func manualNotification(title, body string) delivery.Notification {
	if strings.TrimSpace(title) == "" {
		title = defaultManualTitle
	}
	if strings.TrimSpace(body) == "" {
		body = defaultManualBody
	}
	return delivery.NewReminder(title, body)
}

// mergeSettings applies an incoming foreground record. A later fire the
// agent recorded for the same target time is kept unless the foreground
// changed the target since.
func mergeSettings(current, incoming model.ReminderSettings, targetChanged bool) model.ReminderSettings {
	if targetChanged {
		return incoming
	}
	if incoming.TargetTime == current.TargetTime && current.LastFiredDate > incoming.LastFiredDate {
		incoming.LastFiredDate = current.LastFiredDate
	}
	return incoming
}
