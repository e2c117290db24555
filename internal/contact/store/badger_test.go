package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"huanbo/internal/platform/badgerdb"
	"huanbo/pkg/platform/sentinel"
)

type BadgerStoreSuite struct {
	suite.Suite
	db    *badgerdb.DB
	store *BadgerStore
	ctx   context.Context
}

func TestBadgerStoreSuite(t *testing.T) {
	suite.Run(t, new(BadgerStoreSuite))
}

func (s *BadgerStoreSuite) SetupTest() {
	db, err := badgerdb.Open(badgerdb.InMemoryConfig())
	s.Require().NoError(err)
	s.db = db
	s.store = NewBadgerStore(db, NewMetrics(prometheus.NewRegistry()))
	s.ctx = context.Background()
}

func (s *BadgerStoreSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *BadgerStoreSuite) TestSubmissionKeyIsZeroPadded() {
	s.Equal("submission:00000001748768400000", string(submissionKey("1748768400000")))
}

func (s *BadgerStoreSuite) TestAppendsReadBackInIDOrder() {
	for _, id := range []string{"1748768400002", "999", "1748768400001"} {
		_, err := s.store.Append(s.ctx, submission(id))
		s.Require().NoError(err)
	}

	subs, err := s.store.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(subs, 3)
	s.Equal("999", subs[0].ID)
	s.Equal("1748768400001", subs[1].ID)
	s.Equal("1748768400002", subs[2].ID)
}

func (s *BadgerStoreSuite) TestEmptyStoreReadsEmpty() {
	subs, err := s.store.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.NotNil(subs)
	s.Empty(subs)
}

func (s *BadgerStoreSuite) TestDuplicateIDConflicts() {
	_, err := s.store.Append(s.ctx, submission("5"))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, submission("5"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *BadgerStoreSuite) TestConcurrentAppendsAllSurvive() {
	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.store.Append(s.ctx, submission(fmt.Sprintf("%d", 2000+i)))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	subs, err := s.store.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Len(subs, n)
}

func (s *BadgerStoreSuite) TestCorruptValueFailsRead() {
	s.Require().NoError(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(submissionKey("1"), []byte("{not json"))
	}))

	_, err := s.store.ReadAll(s.ctx)
	s.ErrorIs(err, sentinel.ErrCorrupt)
}
