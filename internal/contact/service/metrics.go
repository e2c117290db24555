package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"huanbo/internal/contact/models"
)

const (
	reasonValidation = "validation"
	reasonStore      = "store"
)

type Metrics struct {
	Accepted *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_contact_submissions_accepted_total",
			Help: "Stored contact submissions by service type",
		}, []string{"service_type"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_contact_submissions_rejected_total",
			Help: "Contact submissions not stored, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) incAccepted(serviceType string) {
	if m == nil {
		return
	}
	if serviceType == "" {
		serviceType = models.UnselectedServiceType
	}
	m.Accepted.WithLabelValues(serviceType).Inc()
}

func (m *Metrics) incRejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}
