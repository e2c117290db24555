package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"huanbo/internal/ratelimit/models"
)

type Metrics struct {
	Rejected        *prometheus.CounterVec
	FallbackActive  prometheus.Gauge
	PrimaryFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_ratelimit_rejected_total",
			Help: "Requests rejected by the per-IP rate limiter, by endpoint class",
		}, []string{"class"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huanbo_ratelimit_fallback_active",
			Help: "1 while the shared rate limit store is bypassed in favour of in-memory limiting",
		}),
		PrimaryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "huanbo_ratelimit_primary_failures_total",
			Help: "Errors returned by the primary rate limit store",
		}),
	}
}

func (m *Metrics) IncrementRejected(class models.EndpointClass) {
	if m != nil {
		m.Rejected.WithLabelValues(string(class)).Inc()
	}
}

func (m *Metrics) SetFallbackActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}

func (m *Metrics) IncrementPrimaryFailures() {
	if m != nil {
		m.PrimaryFailures.Inc()
	}
}
