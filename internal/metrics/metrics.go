package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sandeepkv93/dusk/internal/delivery"
	"github.com/sandeepkv93/dusk/internal/scheduler"
)

// Metrics owns a private registry so tests and multiple agents in one
// process never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ChecksTotal         *prometheus.CounterVec
	FiresTotal          *prometheus.CounterVec
	MessagesTotal       *prometheus.CounterVec
	EventSubscribers    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dusk_http_requests_total",
				Help: "Total number of agent HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dusk_http_request_duration_seconds",
				Help:    "Duration of agent HTTP requests",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		ChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dusk_reminder_checks_total",
				Help: "Reminder checks by context and outcome",
			},
			[]string{"context", "reason"},
		),
		FiresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dusk_reminder_fires_total",
				Help: "Dispatched reminders by context and channel",
			},
			[]string{"context", "channel"},
		),
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dusk_agent_messages_total",
				Help: "Messages received from the foreground by type",
			},
			[]string{"type"},
		),
		EventSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dusk_event_subscribers",
				Help: "Connected event stream subscribers",
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveCheck(source string, reason scheduler.Reason) {
	m.ChecksTotal.WithLabelValues(source, string(reason)).Inc()
}

func (m *Metrics) ObserveFire(source string, channel delivery.Channel) {
	m.FiresTotal.WithLabelValues(source, string(channel)).Inc()
}

// WatchDroppedWakes exports the scheduler's dropped wake count.
func (m *Metrics) WatchDroppedWakes(dropped func() uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "dusk_scheduler_dropped_wakes_total",
			Help: "Due wakes dropped because the previous check was still running",
		},
		func() float64 { return float64(dropped()) },
	))
}

func (m *Metrics) ObserveMessage(kind string) {
	m.MessagesTotal.WithLabelValues(kind).Inc()
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
