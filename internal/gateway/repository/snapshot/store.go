package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// Store persists ProcessState snapshots keyed by report date.
type Store interface {
	Load(ctx context.Context, date string) (*types.ProcessState, error)
	Save(ctx context.Context, state *types.ProcessState) error
	// List returns stored dates, newest first.
	List(ctx context.Context) ([]string, error)
}

var ErrNotFound = errors.New("snapshot not found")

const DateLayout = "2006-01-02"

// NormalizeDate validates an ISO date key.
func NormalizeDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return "", fmt.Errorf("date is required")
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}
	return t.Format(DateLayout), nil
}

func encode(state *types.ProcessState) (string, []byte, error) {
	if state == nil {
		return "", nil, fmt.Errorf("state is nil")
	}
	date, err := NormalizeDate(state.Date)
	if err != nil {
		return "", nil, err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", nil, fmt.Errorf("encode snapshot %s: %w", date, err)
	}
	return date, raw, nil
}

func decode(date string, raw []byte) (*types.ProcessState, error) {
	var st types.ProcessState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", date, err)
	}
	return &st, nil
}
