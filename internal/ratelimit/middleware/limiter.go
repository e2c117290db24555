package middleware

import (
	"context"
	"log/slog"

	"huanbo/internal/ratelimit/metrics"
	"huanbo/internal/ratelimit/models"
	"huanbo/internal/ratelimit/service/requestlimit"
	"huanbo/pkg/platform/circuit"
)

// Limiter adapts a requestlimit.Service to the RateLimiter interface.
type Limiter struct {
	requests *requestlimit.Service
}

func NewLimiter(requests *requestlimit.Service) *Limiter {
	return &Limiter{requests: requests}
}

func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	return l.requests.CheckIP(ctx, ip, class)
}

// ResilientLimiter uses a shared (Redis) primary and switches to an
// in-memory fallback while the primary keeps failing. While the circuit is
// open the primary is still tried so it can close again.
type ResilientLimiter struct {
	primary  RateLimiter
	fallback RateLimiter
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewResilientLimiter(primary, fallback RateLimiter, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *ResilientLimiter {
	return &ResilientLimiter{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
		metrics:  m,
	}
}

func (l *ResilientLimiter) CheckIPRateLimit(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	result, err := l.primary.CheckIPRateLimit(ctx, ip, class)
	if err != nil {
		l.metrics.IncrementPrimaryFailures()
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.metrics.SetFallbackActive(true)
			l.logger.WarnContext(ctx, "rate limit store failing, switching to in-memory fallback",
				"breaker", l.breaker.Name(),
				"error", err,
			)
		}
		if useFallback {
			return l.fallback.CheckIPRateLimit(ctx, ip, class)
		}
		return nil, err
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.metrics.SetFallbackActive(false)
		l.logger.InfoContext(ctx, "rate limit store recovered", "breaker", l.breaker.Name())
	}
	if !usePrimary {
		return l.fallback.CheckIPRateLimit(ctx, ip, class)
	}
	return result, nil
}
