package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// PostgresStore keeps one row per report date in report_snapshots.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgresStore opens dsn with the pgx driver.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS report_snapshots (
  report_date TEXT PRIMARY KEY,
  stage TEXT NOT NULL,
  state JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_report_snapshots_stage ON report_snapshots (stage);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, state *types.ProcessState) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	date, raw, err := encode(state)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO report_snapshots (report_date, stage, state, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (report_date)
DO UPDATE SET stage=EXCLUDED.stage, state=EXCLUDED.state, updated_at=NOW()`,
		date, string(state.Stage), string(raw))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", date, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, date string) (*types.ProcessState, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	date, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.db.QueryRowContext(ctx, `SELECT state FROM report_snapshots WHERE report_date = $1`, date).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", date, err)
	}
	return decode(date, raw)
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT report_date FROM report_snapshots ORDER BY report_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0, 32)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		out = append(out, date)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
