package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// MemoryStore keeps encoded snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, state *types.ProcessState) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	date, raw, err := encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[date] = raw
	return nil
}

func (s *MemoryStore) Load(_ context.Context, date string) (*types.ProcessState, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	date, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	raw, ok := s.data[date]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(date, raw)
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for date := range s.data {
		out = append(out, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}
