package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/model"
)

const (
	probeTimeout   = 500 * time.Millisecond
	requestTimeout = 5 * time.Second
)

var ErrAgentUnavailable = errors.New("agent: not reachable")

// Client is the foreground's view of the agent. It satisfies
// storage.Peer and delivery.Handler.
type Client struct {
	base   string
	http   *http.Client
	dialer *websocket.Dialer
}

func NewClient(baseURL string) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: requestTimeout},
		dialer: websocket.DefaultDialer,
	}
}

func (c *Client) BaseURL() string {
	return c.base
}

// Active reports whether an agent answers its health probe.
func (c *Client) Active(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) SyncSettings(ctx context.Context, in model.ReminderSettings, targetChanged bool) error {
	return c.post(ctx, "/v1/messages", Message{Type: MessageSyncSettings, Settings: &in, TargetChanged: targetChanged}, nil)
}

func (c *Client) SyncTasks(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.post(ctx, "/v1/messages", Message{Type: MessageSyncTasks, Tasks: tasks}, nil)
}

func (c *Client) ShowNotification(ctx context.Context, title, body string) error {
	var resp struct {
		Channel delivery.Channel `json:"channel"`
		Detail  string           `json:"detail"`
	}
	if err := c.post(ctx, "/v1/messages", Message{Type: MessageShowNotification, Title: title, Body: body}, &resp); err != nil {
		return err
	}
	if resp.Channel != delivery.ChannelPersistent {
		return fmt.Errorf("agent: notification delivered via %s: %s", resp.Channel, resp.Detail)
	}
	return nil
}

func (c *Client) Push(ctx context.Context, payload PushPayload) error {
	return c.post(ctx, "/v1/push", payload, nil)
}

func (c *Client) Action(ctx context.Context, action string) error {
	return c.post(ctx, "/v1/notifications/actions/"+action, struct{}{}, nil)
}

func (c *Client) Settings(ctx context.Context) (model.ReminderSettings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/settings", nil)
	if err != nil {
		return model.ReminderSettings{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.ReminderSettings{}, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.ReminderSettings{}, statusError(resp)
	}
	var out model.ReminderSettings
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.ReminderSettings{}, fmt.Errorf("agent: decode settings: %w", err)
	}
	return out, nil
}

// Subscribe streams agent events to fn until ctx is done or the connection
// drops. Callers reconnect as they see fit.
func (c *Client) Subscribe(ctx context.Context, fn func(Event)) error {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/v1/events"
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("agent: event stream: %w", err)
		}
		fn(ev)
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("agent: decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Errorf("agent: %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("agent: %s", resp.Status)
}
