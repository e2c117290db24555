package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"huanbo/internal/contact/models"
	"huanbo/internal/platform/badgerdb"
	"huanbo/pkg/platform/sentinel"
)

const (
	backendBadger = "badger"
	keyPrefix     = "submission:"
	idWidth       = 20
)

// BadgerStore keeps one key per submission. Keys are zero padded so prefix
// iteration yields append order for time-derived ids.
type BadgerStore struct {
	db      *badgerdb.DB
	metrics *Metrics
}

func NewBadgerStore(db *badgerdb.DB, m *Metrics) *BadgerStore {
	return &BadgerStore{db: db, metrics: m}
}

func submissionKey(id string) []byte {
	if pad := idWidth - len(id); pad > 0 {
		id = strings.Repeat("0", pad) + id
	}
	return []byte(keyPrefix + id)
}

func (s *BadgerStore) Append(ctx context.Context, sub models.Submission) (string, error) {
	_, span := startSpan(ctx, "BadgerStore.Append", backendBadger)
	start := time.Now()
	err := s.append(ctx, sub)
	s.metrics.observeAppend(backendBadger, start, err)
	endSpan(span, err)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (s *BadgerStore) append(ctx context.Context, sub models.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	key := submissionKey(sub.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("submission %s: %w", sub.ID, sentinel.ErrConflict)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if errors.Is(err, badger.ErrConflict) {
		// Another transaction committed the same key first.
		return fmt.Errorf("submission %s: %w", sub.ID, sentinel.ErrConflict)
	}
	if err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return fmt.Errorf("append submission: %w", err)
	}
	return err
}

func (s *BadgerStore) ReadAll(ctx context.Context) ([]models.Submission, error) {
	_, span := startSpan(ctx, "BadgerStore.ReadAll", backendBadger)
	subs, err := s.readAll(ctx)
	endSpan(span, err)
	return subs, err
}

func (s *BadgerStore) readAll(ctx context.Context) ([]models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subs := []models.Submission{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var sub models.Submission
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sub)
			})
			if err != nil {
				return fmt.Errorf("%w: key %s: %v", sentinel.ErrCorrupt, item.Key(), err)
			}
			subs = append(subs, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}
