package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"huanbo/internal/auth"
	"huanbo/internal/contact/notify"
	"huanbo/internal/contact/service"
	"huanbo/internal/contact/store"
	"huanbo/internal/platform/badgerdb"
	"huanbo/internal/platform/config"
	"huanbo/internal/platform/httpserver"
	"huanbo/internal/platform/logger"
	"huanbo/internal/platform/metrics"
	"huanbo/internal/platform/redis"
	rlmetrics "huanbo/internal/ratelimit/metrics"
	rlmw "huanbo/internal/ratelimit/middleware"
	"huanbo/internal/ratelimit/service/requestlimit"
	"huanbo/internal/ratelimit/store/bucket"
	"huanbo/internal/site"
	httptransport "huanbo/internal/transport/http"
	"huanbo/pkg/platform/circuit"
	"huanbo/pkg/platform/middleware/metadata"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the website, contact API and admin endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// contactStore is what the serve lifecycle needs from a submission backend.
type contactStore interface {
	service.Store
	Run(ctx context.Context) error
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.Server.Environment)
	startedAt := time.Now()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loc, err := time.LoadLocation(cfg.Mail.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	submissions, closeStore, err := openStore(cfg.Storage, log, store.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer closeStore()

	buckets := bucket.NewInMemoryBucketStore()
	limiter, closeLimiter, err := buildLimiter(ctx, cfg, log, reg, buckets)
	if err != nil {
		return err
	}
	defer closeLimiter()

	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	adminAuth, err := auth.New(cfg.Admin)
	if err != nil {
		return err
	}

	mailer, err := notify.NewSMTPMailer(cfg.Mail)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.Mail.CompanyEmail,
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics(reg)),
		notify.WithLocation(loc),
		notify.WithQueueSize(cfg.Mail.QueueSize),
		notify.WithRatePerMinute(cfg.Mail.RatePerMinute),
		notify.WithSendTimeout(cfg.Mail.SendTimeout),
		notify.WithDrainWindow(cfg.Mail.DrainWindow),
	)

	contacts, err := service.New(submissions, dispatcher,
		service.WithLogger(log),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithLocation(loc),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Config:   cfg.Server,
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Limiter:  limiter,
		Admin:    adminAuth,
		Contact:  contacts,
		Site:     site.New(cfg.Server.StaticDir, log, startedAt),

		TrustedProxies: trusted,
	})
	srv := httpserver.New(cfg.Server.Addr(), router)

	// The store and dispatcher outlive the HTTP server so in-flight requests
	// can still append and enqueue while it drains.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()
	storeCtx, stopStore := context.WithCancel(context.WithoutCancel(ctx))
	defer stopStore()
	dispatchDone := runInBackground(dispatchCtx, dispatcher.Run)
	storeDone := runInBackground(storeCtx, submissions.Run)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweepDone := runInBackground(sweepCtx, buckets.Run)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("huanbo server started",
			"addr", cfg.Server.Addr(),
			"environment", cfg.Server.Environment,
			"store", cfg.Storage.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "reason", context.Cause(gctx))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	serveErr := g.Wait()

	stopSweep()
	<-sweepDone

	stopDispatch()
	if err := <-dispatchDone; err != nil {
		log.Error("notification dispatcher stopped with error", "error", err)
	}
	stopStore()
	if err := <-storeDone; err != nil {
		log.Error("submission store stopped with error", "error", err)
	}

	log.Info("server stopped")
	return serveErr
}

// openStore builds the configured backend. The returned Run blocks until its
// context ends; close releases file handles afterwards.
func openStore(cfg config.Storage, log *slog.Logger, m *store.Metrics) (contactStore, func(), error) {
	switch cfg.Backend {
	case "badger":
		dbCfg := badgerdb.DefaultConfig(filepath.Join(cfg.DataDir, "badger"))
		dbCfg.Logger = log
		db, err := badgerdb.Open(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close badger", "error", err)
			}
		}
		return &badgerBackend{BadgerStore: store.NewBadgerStore(db, m), db: db}, closeDB, nil
	default:
		fs, err := store.NewFileStore(cfg.DataDir, store.WithFileLogger(log), store.WithFileMetrics(m))
		if err != nil {
			return nil, nil, err
		}
		log.Info("submissions stored as JSON lines", "path", fs.Path())
		return fs, func() {}, nil
	}
}

func runInBackground(ctx context.Context, run func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	return done
}

// badgerBackend runs value-log GC for as long as the store is in use.
type badgerBackend struct {
	*store.BadgerStore
	db *badgerdb.DB
}

func (b *badgerBackend) Run(ctx context.Context) error {
	return b.db.RunGC(ctx)
}

// buildLimiter keeps rate limit windows in Redis when REDIS_URL is set, with
// buckets as the in-process fallback while Redis is unreachable.
func buildLimiter(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, buckets *bucket.InMemoryBucketStore) (*rlmw.Middleware, func(), error) {
	m := rlmetrics.New(reg)

	local, err := requestlimit.New(buckets,
		requestlimit.WithLogger(log),
		requestlimit.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, err
	}
	opts := []rlmw.Option{
		rlmw.WithMessages(local.Message),
		rlmw.WithDisabled(cfg.RateLimit.Disabled),
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return rlmw.New(rlmw.NewLimiter(local), log, opts...), func() {}, nil
	}

	shared, err := requestlimit.New(bucket.NewRedisBucketStore(client.Client),
		requestlimit.WithLogger(log),
		requestlimit.WithMetrics(m),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	resilient := rlmw.NewResilientLimiter(
		rlmw.NewLimiter(shared),
		rlmw.NewLimiter(local),
		circuit.New("ratelimit-redis"),
		log,
		m,
	)
	log.Info("rate limiting backed by redis")
	return rlmw.New(resilient, log, opts...), func() { _ = client.Close() }, nil
}
