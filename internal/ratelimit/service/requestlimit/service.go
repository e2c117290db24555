package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"huanbo/internal/ratelimit/config"
	"huanbo/internal/ratelimit/metrics"
	"huanbo/internal/ratelimit/models"
	dErrors "huanbo/pkg/domain-errors"
	"huanbo/pkg/platform/privacy"
	"huanbo/pkg/requestcontext"
)

// BucketStore is a sliding window counter keyed by rate limit key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Service struct {
	buckets BucketStore
	logger  *slog.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		config:  config.DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP consumes one request from ip's window for class.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.config.GetIPLimit(class)
	if !ok {
		// Default-deny: a class without a configured limit is a wiring bug.
		s.logger.ErrorContext(ctx, "rate limit config missing",
			"endpoint_class", class,
			"ip_prefix", privacy.AnonymizeIP(ip),
		)
		return &models.RateLimitResult{
			Allowed:    false,
			ResetAt:    requestcontext.Now(ctx),
			RetryAfter: 60,
		}, nil
	}

	key := models.NewRateLimitKey(models.KeyPrefixIP, ip, class)
	result, err := s.buckets.Allow(ctx, key.String(), limit.RequestsPerWindow, limit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if !result.Allowed {
		s.metrics.IncrementRejected(class)
		s.logger.WarnContext(ctx, "ip rate limit exceeded",
			"request_id", requestcontext.RequestID(ctx),
			"ip_prefix", privacy.AnonymizeIP(ip),
			"endpoint_class", class,
			"limit", limit.RequestsPerWindow,
			"window_seconds", int(limit.Window.Seconds()),
		)
	}
	return result, nil
}

// Message returns the localized 429 message for class.
func (s *Service) Message(class models.EndpointClass) string {
	if limit, ok := s.config.GetIPLimit(class); ok && limit.Message != "" {
		return limit.Message
	}
	return "请求过于频繁，请稍后再试"
}
