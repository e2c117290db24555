package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindCompany  = "company"
	kindCustomer = "customer"

	dropQueueFull   = "queue_full"
	dropCircuitOpen = "circuit_open"
	dropShutdown    = "shutdown"
	dropRender      = "render"
)

// Metrics holds Prometheus metrics for notification delivery.
type Metrics struct {
	Sent                *prometheus.CounterVec
	Failed              *prometheus.CounterVec
	Dropped             *prometheus.CounterVec
	QueueDepth          prometheus.Gauge
	CircuitBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_notifications_sent_total",
			Help: "Notification emails accepted by the SMTP relay, by kind",
		}, []string{"kind"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_notifications_failed_total",
			Help: "Notification emails the SMTP relay rejected or that timed out, by kind",
		}, []string{"kind"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_notifications_dropped_total",
			Help: "Notifications never attempted, by kind and reason",
		}, []string{"kind", "reason"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huanbo_notifications_queue_depth",
			Help: "Submissions waiting for notification",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huanbo_notifications_circuit_breaker_state",
			Help: "Mail circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) incSent(kind string) {
	if m != nil {
		m.Sent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) incFailed(kind string) {
	if m != nil {
		m.Failed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) incDropped(kind, reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(kind, reason).Inc()
	}
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) setCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
