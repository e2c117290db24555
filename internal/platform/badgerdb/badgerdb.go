// Package badgerdb opens the embedded badger database used by the badger
// submission store and runs its value-log garbage collection.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
	// GCInterval of zero disables value-log GC.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig is meant for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB wraps a badger handle with its GC settings.
type DB struct {
	*badger.DB
	logger     *slog.Logger
	gcInterval time.Duration
	gcRatio    float64
}

func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: logger})
	} else {
		logger = slog.Default()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	gcInterval := cfg.GCInterval
	if cfg.InMemory {
		gcInterval = 0
	}
	return &DB{DB: db, logger: logger, gcInterval: gcInterval, gcRatio: cfg.GCDiscardRatio}, nil
}

// RunGC runs value-log GC every interval until ctx is done.
func (d *DB) RunGC(ctx context.Context) error {
	if d.gcInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.collect()
		}
	}
}

func (d *DB) collect() {
	// One pass rewrites at most one file; loop until nothing is left.
	for {
		err := d.RunValueLogGC(d.gcRatio)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			d.logger.Warn("badger value log GC error", "error", err)
		}
		return
	}
}
