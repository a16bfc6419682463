package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swarmsync"

// Outcome labels for processed messages.
const (
	OutcomeStored    = "stored"
	OutcomeNoop      = "noop"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeConfig    = "config"
)

// Metrics holds every collector the daemon exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	messagesProcessed *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	handleDuration    *prometheus.HistogramVec
	jobsCompleted     *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	feedFrames        prometheus.Counter
	feedConnected     prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Deliveries processed by the receive pipeline.",
		}, []string{"kind", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_rejections_total",
			Help:      "Deliveries dropped by the receive pipeline, by error code.",
		}, []string{"code"}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent parsing and handling one delivery.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Background jobs run, by variant and outcome.",
		}, []string{"variant", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User notifications, by type and outcome.",
		}, []string{"type", "outcome"}),
		feedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_frames_total",
			Help:      "Frames read from the delivery feed.",
		}),
		feedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connected",
			Help:      "1 while the delivery feed connection is open.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status server requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Status server request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.messagesProcessed,
		m.rejections,
		m.handleDuration,
		m.jobsCompleted,
		m.notifications,
		m.feedFrames,
		m.feedConnected,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) MessageProcessed(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.messagesProcessed.WithLabelValues(kind, outcome).Inc()
	m.handleDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) MessageRejected(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) JobCompleted(variant, outcome string) {
	if m == nil {
		return
	}
	m.jobsCompleted.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) FeedFrame() {
	if m == nil {
		return
	}
	m.feedFrames.Inc()
}

func (m *Metrics) FeedConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.feedConnected.Set(1)
	} else {
		m.feedConnected.Set(0)
	}
}

func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
