package snapshot

import (
	"context"
	"errors"
	"testing"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/types"
)

type countingStore struct {
	*snaprepo.MemoryStore
	loads   int
	failSet bool
}

func (s *countingStore) Load(ctx context.Context, date string) (*types.ProcessState, error) {
	s.loads++
	return s.MemoryStore.Load(ctx, date)
}

func (s *countingStore) Save(ctx context.Context, st *types.ProcessState) error {
	if s.failSet {
		return errors.New("save failed")
	}
	return s.MemoryStore.Save(ctx, st)
}

func newStore(t *testing.T) (*countingStore, *CachedStore) {
	t.Helper()
	origin := &countingStore{MemoryStore: snaprepo.NewMemoryStore()}
	store, err := NewCachedStore(origin, 8)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	return origin, store
}

func TestCachedStoreServesFinishedSnapshotsFromMemory(t *testing.T) {
	origin, store := newStore(t)
	ctx := context.Background()
	done := &types.ProcessState{Date: "2025-06-01", Stage: types.StageComplete, FinalReport: &types.CryptoReportData{ExecutiveSummary: "ok"}}
	if err := store.Save(ctx, done); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := store.Load(ctx, "2025-06-01")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.FinalReport.ExecutiveSummary != "ok" {
			t.Fatalf("unexpected snapshot: %+v", got)
		}
		got.FinalReport.ExecutiveSummary = "mutated"
	}
	if origin.loads != 0 {
		t.Fatalf("expected no origin loads, got %d", origin.loads)
	}
	m := store.Metrics()
	if m.Hits != 3 || m.Misses != 0 || m.OriginWrites != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestCachedStoreBypassesInFlightSnapshots(t *testing.T) {
	origin, store := newStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, &types.ProcessState{Date: "2025-06-01", Stage: types.StageResearching}); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Load(ctx, "2025-06-01"); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if origin.loads != 2 {
		t.Fatalf("expected 2 origin loads, got %d", origin.loads)
	}

	// Finished snapshots are cached on save.
	if err := store.Save(ctx, &types.ProcessState{Date: "2025-06-01", Stage: types.StageError, Error: "boom"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "2025-06-01")
	if err != nil || got.Error != "boom" {
		t.Fatalf("expected cached failure, got %+v %v", got, err)
	}
	if origin.loads != 2 {
		t.Fatalf("expected cache hit, got %d origin loads", origin.loads)
	}
}

func TestCachedStoreWriteFailureLeavesCacheAlone(t *testing.T) {
	origin, store := newStore(t)
	ctx := context.Background()
	origin.failSet = true
	if err := store.Save(ctx, &types.ProcessState{Date: "2025-06-01", Stage: types.StageComplete}); err == nil {
		t.Fatalf("expected save error")
	}
	if _, err := store.Load(ctx, "2025-06-01"); !errors.Is(err, snaprepo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	m := store.Metrics()
	if m.OriginWriteErr != 1 || m.OriginReadErr != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}
