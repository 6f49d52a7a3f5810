package delivery

import "github.com/sandeepkv93/dusk/internal/model"

const (
	ActionOpen    = "open"
	ActionDismiss = "dismiss"

	DefaultIcon  = "dusk"
	DefaultBadge = "dusk-badge"
)

type Action struct {
	ID    string `json:"action"`
	Title string `json:"title"`
}

// Notification is what the persistent channel shows. Tag lets a newer
// reminder replace an older one still on screen.
type Notification struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tag      string   `json:"tag"`
	Icon     string   `json:"icon,omitempty"`
	Badge    string   `json:"badge,omitempty"`
	Renotify bool     `json:"renotify"`
	Actions  []Action `json:"actions,omitempty"`
}

func NewReminder(title, body string) Notification {
	return Notification{
		Title:    title,
		Body:     body,
		Tag:      model.SettingsKey,
		Icon:     DefaultIcon,
		Badge:    DefaultBadge,
		Renotify: true,
		Actions: []Action{
			{ID: ActionOpen, Title: "Open Dusk"},
			{ID: ActionDismiss, Title: "Dismiss"},
		},
	}
}

func ValidAction(id string) bool {
	return id == ActionOpen || id == ActionDismiss
}
