package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	contacthandler "huanbo/internal/contact/handler"
	"huanbo/internal/platform/config"
	"huanbo/internal/platform/metrics"
	"huanbo/internal/platform/middleware"
	rlmodels "huanbo/internal/ratelimit/models"
	"huanbo/internal/site"
	"huanbo/pkg/platform/middleware/admin"
	metadata "huanbo/pkg/platform/middleware/metadata"
	"huanbo/pkg/platform/middleware/requesttime"
)

const apiTimeout = 30 * time.Second

// RateLimiter produces per-class throttling middleware.
type RateLimiter interface {
	RateLimit(class rlmodels.EndpointClass) func(http.Handler) http.Handler
}

// Deps are the collaborators NewRouter wires together.
type Deps struct {
	Config         config.Server
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Limiter        RateLimiter
	Admin          admin.Authenticator
	Contact        contacthandler.Service
	Site           *site.Handler
	TrustedProxies *metadata.TrustedProxies
}

// NewRouter builds the full HTTP surface: the contact API, admin stats,
// metrics, health and the static site.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustedProxies))
	r.Use(requesttime.Middleware)
	// Recovery sits inside Logger and Latency so recovered panics are still
	// logged and observed with their 500 status.
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	r.Use(middleware.Recovery(d.Logger, d.Config.IsDevelopment()))
	r.Use(middleware.SecurityHeaders(d.Config.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(chimw.RequestSize(d.Config.BodyLimitBytes))

	requireAdmin := admin.RequireAdmin(d.Admin, d.Logger)
	contactLimit := d.Limiter.RateLimit(rlmodels.ClassContact)

	r.Group(func(limited chi.Router) {
		limited.Use(d.Limiter.RateLimit(rlmodels.ClassGlobal))

		limited.Group(func(api chi.Router) {
			api.Use(chimw.Timeout(apiTimeout))
			contacthandler.New(d.Contact, d.Logger, contactLimit, requireAdmin).Register(api)
		})

		limited.With(requireAdmin).Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
		d.Site.RegisterHealth(limited)
	})

	d.Site.Register(r)
	return r
}
