package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
// All helper methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	IncomingUpdates  *prometheus.CounterVec
	OutgoingMessages *prometheus.CounterVec
	HandlerLatency   *prometheus.HistogramVec
	Reminders        *prometheus.CounterVec
	Pending          *prometheus.CounterVec
	Exports          *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = New(namespace)
		prometheus.MustRegister(metricsInstance.collectors()...)
	})
	return metricsInstance
}

// New builds an unregistered set of collectors.
func New(namespace string) *Metrics {
	return &Metrics{
		IncomingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tg_incoming_updates_total",
			Help:      "Total incoming Telegram updates by kind.",
		}, []string{"type"}),
		OutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tg_outgoing_messages_total",
			Help:      "Total outgoing Telegram calls by kind.",
		}, []string{"type"}),
		HandlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Latency distribution of update handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder lifecycle events.",
		}, []string{"event"}),
		Pending: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_submissions_total",
			Help:      "Pending problem submissions by event.",
		}, []string{"event"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Spreadsheet exports by kind.",
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.IncomingUpdates,
		m.OutgoingMessages,
		m.HandlerLatency,
		m.Reminders,
		m.Pending,
		m.Exports,
		m.Errors,
	}
}

func (m *Metrics) Incoming(kind string) {
	if m != nil {
		m.IncomingUpdates.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Outgoing(kind string) {
	if m != nil {
		m.OutgoingMessages.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveHandler(route string, started time.Time) {
	if m != nil {
		m.HandlerLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) Reminder(event string) {
	if m != nil {
		m.Reminders.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) PendingEvent(event string) {
	if m != nil {
		m.Pending.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) Export(kind string) {
	if m != nil {
		m.Exports.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Error(component string) {
	if m != nil {
		m.Errors.WithLabelValues(component).Inc()
	}
}
