package agent

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/logging"
	"github.com/sandeepkv93/dusk/internal/metrics"
	"github.com/sandeepkv93/dusk/internal/model"
	"github.com/sandeepkv93/dusk/internal/scheduler"
)

const maxBodyBytes = 1 << 20

// Store is what the agent keeps in its transactional backend.
type Store interface {
	scheduler.BackgroundStore
	ReplaceTasks(ctx context.Context, tasks []model.Task) error
}

type Server struct {
	store      Store
	background *scheduler.Background
	router     *delivery.Router
	hub        *Hub
	metrics    *metrics.Metrics
	opener     Opener
	logger     *log.Logger
	engine     *gin.Engine
	upgrader   websocket.Upgrader
	started    time.Time
}

type ServerDeps struct {
	Store      Store
	Background *scheduler.Background
	Router     *delivery.Router
	Hub        *Hub
	Metrics    *metrics.Metrics
	Opener     Opener
	Logger     *log.Logger
}

func NewServer(deps ServerDeps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}
	if deps.Opener == nil {
		deps.Opener = CommandOpener{}
	}

	s := &Server{
		store:      deps.Store,
		background: deps.Background,
		router:     deps.Router,
		hub:        deps.Hub,
		metrics:    deps.Metrics,
		opener:     deps.Opener,
		logger:     logging.Component(deps.Logger, "agent"),
		engine:     engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     loopbackOrigin,
		},
		started: time.Now(),
	}
	s.hub.onCount = func(n int) { s.metrics.EventSubscribers.Set(float64(n)) }
	engine.Use(s.metrics.Middleware())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/messages", s.handleMessage)
		v1.POST("/push", s.handlePush)
		v1.POST("/notifications/actions/:action", s.handleAction)
		v1.GET("/settings", s.handleSettings)
		v1.GET("/events", s.handleEvents)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":      "ok",
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"subscribers": s.hub.Count(),
	}
	if s.background != nil {
		if at, ok := s.background.Armed(); ok {
			resp["armed"] = at.Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMessage(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := msg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.metrics.ObserveMessage(msg.Type)
	ctx := c.Request.Context()

	switch msg.Type {
	case MessageSyncSettings:
		current, err := s.store.ReadSettings(ctx)
		if err != nil {
			s.logger.Warn("stored settings unreadable, replacing", "err", err)
		}
		merged := mergeSettings(current, *msg.Settings, msg.TargetChanged)
		if err := s.store.WriteSettings(ctx, merged); err != nil {
			s.logger.Error("sync settings failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.hub.Broadcast(SettingsChanged(merged))
		if s.background != nil {
			s.background.Wake("sync")
		}
		c.JSON(http.StatusAccepted, gin.H{"settings": merged})

	case MessageSyncTasks:
		if err := s.store.ReplaceTasks(ctx, msg.Tasks); err != nil {
			s.logger.Error("sync tasks failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"tasks": len(msg.Tasks)})

	case MessageShowNotification:
		// The sender falls back on its own, so nothing is toasted here.
		res := delivery.Result{Channel: delivery.ChannelPersistent}
		if err := s.router.Show(ctx, manualNotification(msg.Title, msg.Body)); err != nil {
			res = delivery.Result{Channel: delivery.ChannelNone, Err: err}
		}
		s.metrics.ObserveFire("manual", res.Channel)
		c.JSON(http.StatusAccepted, deliveryResponse(res))
	}
}

func (s *Server) handlePush(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := s.router.Deliver(c.Request.Context(), ParsePush(raw))
	s.metrics.ObserveFire("push", res.Channel)
	c.JSON(http.StatusAccepted, deliveryResponse(res))
}

func (s *Server) handleAction(c *gin.Context) {
	action := c.Param("action")
	if !delivery.ValidAction(action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + action})
		return
	}
	if action == delivery.ActionDismiss {
		c.Status(http.StatusNoContent)
		return
	}
	opened, err := s.RunAction(c.Request.Context(), action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"opened": opened})
}

// RunAction handles an action picked on a notification. A running
// foreground is focused; otherwise one is launched. It reports which of
// "focus", "launch" or "none" happened.
func (s *Server) RunAction(ctx context.Context, action string) (string, error) {
	if action != delivery.ActionOpen {
		return "none", nil
	}
	if s.hub.Count() > 0 {
		s.hub.Broadcast(Event{Type: EventFocus})
		return "focus", nil
	}
	if err := s.opener.Open(ctx); err != nil {
		if errors.Is(err, ErrNoOpener) {
			return "none", nil
		}
		s.logger.Warn("open command failed", "err", err)
		return "", err
	}
	return "launch", nil
}

func (s *Server) handleSettings(c *gin.Context) {
	settings, err := s.store.ReadSettings(c.Request.Context())
	if err != nil {
		s.logger.Warn("settings unreadable, serving defaults", "err", err)
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	settings, _ := s.store.ReadSettings(c.Request.Context())
	if err := conn.WriteJSON(SettingsChanged(settings)); err != nil {
		_ = conn.Close()
		return
	}
	s.hub.Serve(conn)
}

func deliveryResponse(res delivery.Result) gin.H {
	out := gin.H{"channel": res.Channel}
	if res.Err != nil {
		out["detail"] = res.Err.Error()
	}
	return out
}

func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://127.0.0.1", "http://localhost", "http://[::1]"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}
