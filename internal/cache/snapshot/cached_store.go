package snapshot

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/types"
)

type Store = snaprepo.Store

const DefaultMaxEntries = 256

type MetricsSnapshot struct {
	Hits           uint64
	Misses         uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Hits:           m.hits.Load(),
		Misses:         m.misses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

// CachedStore fronts a Store with an LRU of finished snapshots. Snapshots
// still in progress always go to the origin.
type CachedStore struct {
	origin  Store
	cache   *lru.Cache[string, *types.ProcessState]
	metrics Metrics
}

func NewCachedStore(origin Store, maxEntries int) (*CachedStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cache, err := lru.New[string, *types.ProcessState](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedStore{origin: origin, cache: cache}, nil
}

func (s *CachedStore) Save(ctx context.Context, state *types.ProcessState) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Save(ctx, state); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	// The origin already validated the date.
	date, _ := snaprepo.NormalizeDate(state.Date)
	if state.Stage.Terminal() {
		s.cache.Add(date, state.Clone())
	} else {
		s.cache.Remove(date)
	}
	return nil
}

func (s *CachedStore) Load(ctx context.Context, date string) (*types.ProcessState, error) {
	key, err := snaprepo.NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	if st, ok := s.cache.Get(key); ok {
		s.metrics.hits.Add(1)
		return st.Clone(), nil
	}
	s.metrics.misses.Add(1)
	s.metrics.originReads.Add(1)

	st, err := s.origin.Load(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	if st.Stage.Terminal() {
		s.cache.Add(key, st.Clone())
	}
	return st, nil
}

func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	s.metrics.originReads.Add(1)
	list, err := s.origin.List(ctx)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	return list, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
