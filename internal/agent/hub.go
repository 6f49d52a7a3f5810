package agent

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
)

const (
	subscriberBuffer = 16
	writeWait        = 5 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to websocket subscribers. A subscriber that cannot
// keep up is dropped instead of blocking the broadcaster.
type Hub struct {
	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	logger  *log.Logger
	onCount func(int)
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{subs: make(map[*subscriber]struct{}), logger: logging.OrNop(logger)}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	dropped := false
	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			h.logger.Warn("dropping slow subscriber", "event", ev.Type)
			h.removeLocked(sub)
			dropped = true
		}
	}
	count := len(h.subs)
	h.mu.Unlock()
	if dropped {
		h.reportCount(count)
	}
}

// Toast forwards an in-app message to every connected foreground.
func (h *Hub) Toast(title, body string, level delivery.ToastLevel) {
	h.Broadcast(Event{Type: EventToast, Title: title, Body: body, Level: string(level)})
}

// Serve registers conn and pumps events to it until either side closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	sub := &subscriber{conn: conn, send: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	h.reportCount(count)

	go h.readPump(sub)
	h.writePump(sub)
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.removeLocked(sub)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	h.removeLocked(sub)
	count := len(h.subs)
	h.mu.Unlock()
	h.reportCount(count)
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

func (h *Hub) reportCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadLimit(4096)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteJSON(ev); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}
