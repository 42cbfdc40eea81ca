package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/safeio"
	"github.com/reny1cao/crypto-insights/internal/types"
)

// FileStore writes one <date>.json file per snapshot under a directory.
type FileStore struct {
	dir *safeio.Dir
}

func NewFileStore(root string) (*FileStore, error) {
	dir, err := safeio.OpenDir(root, true)
	if err != nil {
		return nil, fmt.Errorf("open snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(_ context.Context, state *types.ProcessState) error {
	if s == nil || s.dir == nil {
		return fmt.Errorf("store is nil")
	}
	date, raw, err := encode(state)
	if err != nil {
		return err
	}
	return s.dir.WriteFile(date+".json", raw, 0o644)
}

func (s *FileStore) Load(_ context.Context, date string) (*types.ProcessState, error) {
	if s == nil || s.dir == nil {
		return nil, fmt.Errorf("store is nil")
	}
	date, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	raw, err := s.dir.ReadFile(date + ".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(date, raw)
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	if s == nil || s.dir == nil {
		return nil, fmt.Errorf("store is nil")
	}
	entries, err := s.dir.ReadDir(".")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date, err := NormalizeDate(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		out = append(out, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}
