// Package service runs the contact submission pipeline and the admin
// aggregation over stored submissions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"huanbo/internal/contact/models"
	"huanbo/internal/contact/validation"
	dErrors "huanbo/pkg/domain-errors"
	"huanbo/pkg/platform/privacy"
	"huanbo/pkg/requestcontext"
)

var tracer = otel.Tracer("huanbo/contact/service")

// Store persists submissions.
type Store interface {
	Append(ctx context.Context, sub models.Submission) (string, error)
	ReadAll(ctx context.Context) ([]models.Submission, error)
}

// Notifier delivers best-effort notifications; it cannot fail the request.
type Notifier interface {
	Notify(ctx context.Context, sub models.Submission)
}

type Service struct {
	store    Store
	notifier Notifier
	ids      *models.IDGenerator
	location *time.Location
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocation sets the calendar used for the "today" count.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func New(store Store, notifier Notifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		ids:      &models.IDGenerator{},
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit validates form, stores it and queues notifications. Validation
// failures are returned as validation.ValidationErrors; storage failures as
// an internal domain error.
func (s *Service) Submit(ctx context.Context, form models.ContactForm) (models.Submission, error) {
	ctx, span := tracer.Start(ctx, "contact.Submit")
	defer span.End()

	normalized, fieldErrs := validation.Validate(form)
	if len(fieldErrs) > 0 {
		s.metrics.incRejected(reasonValidation)
		span.SetAttributes(attribute.Int("contact.validation_errors", len(fieldErrs)))
		s.logger.InfoContext(ctx, "contact form rejected",
			"request_id", requestcontext.RequestID(ctx),
			"errors", len(fieldErrs),
		)
		return models.Submission{}, fieldErrs
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Millisecond)
	sub := models.Submission{
		ID:          s.ids.Next(now),
		Timestamp:   now,
		Name:        normalized.Name,
		Contact:     normalized.Contact,
		Company:     normalized.Company,
		ServiceType: normalized.ServiceType,
		CargoType:   normalized.CargoType,
		Destination: normalized.Destination,
		Message:     normalized.Message,
		IP:          requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
	}
	span.SetAttributes(attribute.String("contact.submission_id", sub.ID))

	if _, err := s.store.Append(ctx, sub); err != nil {
		s.metrics.incRejected(reasonStore)
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.logger.ErrorContext(ctx, "failed to store submission",
			"request_id", requestcontext.RequestID(ctx),
			"submission_id", sub.ID,
			"error", err,
		)
		return models.Submission{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store submission")
	}

	s.notifier.Notify(ctx, sub)
	s.metrics.incAccepted(sub.ServiceType)
	s.logger.InfoContext(ctx, "contact submission stored",
		"request_id", requestcontext.RequestID(ctx),
		"submission_id", sub.ID,
		"contact", privacy.MaskContact(sub.Contact),
		"service_type", sub.ServiceType,
		"ip_prefix", privacy.AnonymizeIP(sub.IP),
	)
	return sub, nil
}

// Stats counts stored submissions relative to the request time.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, span := tracer.Start(ctx, "contact.Stats")
	defer span.End()

	subs, err := s.store.ReadAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read submissions")
	}
	return Aggregate(subs, requestcontext.Now(ctx), s.location), nil
}

// Aggregate computes Stats over subs. Today is the calendar day of now in
// loc; the week is the 7 days before now.
func Aggregate(subs []models.Submission, now time.Time, loc *time.Location) *models.Stats {
	stats := &models.Stats{
		Total:        len(subs),
		ServiceTypes: map[string]int{},
	}
	localNow := now.In(loc)
	y, m, d := localNow.Date()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	for _, sub := range subs {
		ty, tm, td := sub.Timestamp.In(loc).Date()
		if ty == y && tm == m && td == d {
			stats.Today++
		}
		if !sub.Timestamp.Before(weekAgo) {
			stats.ThisWeek++
		}
		label := sub.ServiceType
		if label == "" {
			label = models.UnselectedServiceType
		}
		stats.ServiceTypes[label]++
	}
	return stats
}
