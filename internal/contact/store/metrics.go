package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("huanbo/contact/store")

type Metrics struct {
	AppendDuration *prometheus.HistogramVec
	Appends        *prometheus.CounterVec
	Quarantined    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AppendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "huanbo_submission_store_append_duration_seconds",
			Help:    "Time to durably append one submission",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"backend"}),
		Appends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huanbo_submission_store_appends_total",
			Help: "Append attempts by backend and result",
		}, []string{"backend", "result"}),
		Quarantined: factory.NewCounter(prometheus.CounterOpts{
			Name: "huanbo_submission_store_quarantined_total",
			Help: "Corrupt submission documents moved aside",
		}),
	}
}

func (m *Metrics) observeAppend(backend string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AppendDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	m.Appends.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) incQuarantined() {
	if m != nil {
		m.Quarantined.Inc()
	}
}

func startSpan(ctx context.Context, name, backend string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("store.backend", backend)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
