// Package store persists contact submissions.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"huanbo/internal/contact/models"
	"huanbo/pkg/platform/sentinel"
)

const (
	backendFile  = "file"
	documentName = "submissions.json"
)

// FileStore keeps every submission in one indented JSON array. A single
// writer goroutine (Run) applies appends one at a time and replaces the
// document by atomic rename, so readers never see a partial write.
type FileStore struct {
	path    string
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	appends chan appendRequest
	done    chan struct{}
}

type appendRequest struct {
	submission models.Submission
	result     chan error
}

type FileOption func(*FileStore)

func WithFileLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

func WithFileMetrics(m *Metrics) FileOption {
	return func(s *FileStore) {
		s.metrics = m
	}
}

// NewFileStore prepares dir and returns a store. Appends block until Run is
// started.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	s := &FileStore{
		path:    filepath.Join(dir, documentName),
		logger:  slog.Default(),
		now:     time.Now,
		appends: make(chan appendRequest),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Run is the writer loop. It returns when ctx is done; later appends fail
// with sentinel.ErrClosed.
func (s *FileStore) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.appends:
			req.result <- s.apply(req.submission)
		}
	}
}

// Append durably adds sub and returns its id.
func (s *FileStore) Append(ctx context.Context, sub models.Submission) (string, error) {
	ctx, span := startSpan(ctx, "FileStore.Append", backendFile)
	start := time.Now()
	err := s.enqueue(ctx, sub)
	s.metrics.observeAppend(backendFile, start, err)
	endSpan(span, err)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (s *FileStore) enqueue(ctx context.Context, sub models.Submission) error {
	req := appendRequest{submission: sub, result: make(chan error, 1)}
	select {
	case s.appends <- req:
	case <-s.done:
		return sentinel.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted the write is carried out regardless of ctx, so the caller
	// always learns whether it landed.
	return <-req.result
}

// ReadAll returns every stored submission in append order. A missing
// document is an empty store.
func (s *FileStore) ReadAll(ctx context.Context) ([]models.Submission, error) {
	_, span := startSpan(ctx, "FileStore.ReadAll", backendFile)
	subs, err := s.load()
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, nil
}

// apply runs on the writer goroutine only.
func (s *FileStore) apply(sub models.Submission) error {
	subs, err := s.load()
	if errors.Is(err, sentinel.ErrCorrupt) {
		if qerr := s.quarantine(err); qerr != nil {
			return qerr
		}
		subs = nil
	} else if err != nil {
		return err
	}

	for i := range subs {
		if subs[i].ID == sub.ID {
			return fmt.Errorf("submission %s: %w", sub.ID, sentinel.ErrConflict)
		}
	}

	subs = append(subs, sub)
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode submissions: %w", err)
	}
	return writeAtomic(s.path, data)
}

func (s *FileStore) load() ([]models.Submission, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var subs []models.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sentinel.ErrCorrupt, s.path, err)
	}
	return subs, nil
}

func (s *FileStore) quarantine(cause error) error {
	target := s.path + ".corrupt-" + strconv.FormatInt(s.now().Unix(), 10)
	if err := os.Rename(s.path, target); err != nil {
		return fmt.Errorf("quarantine corrupt document: %w", err)
	}
	s.metrics.incQuarantined()
	s.logger.Error("submission document corrupt, moved aside and starting a new one",
		"error", cause,
		"quarantined_to", target,
	)
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
