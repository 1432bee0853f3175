// Package postgres provides a Postgres-backed snapshot store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for snapshots.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type queryExecCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store keeps one encoded snapshot row per run date.
type Store struct {
	pool  queryExecCloser
	table string
}

// New creates a Postgres-backed snapshot store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool queryExecCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// MostRecent loads the latest snapshot whose date is not excludeDate.
func (s *Store) MostRecent(ctx context.Context, excludeDate string) (*scrape.Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	query := fmt.Sprintf(
		`SELECT run_date, data FROM %s WHERE run_date <> $1 ORDER BY run_date DESC LIMIT 1`,
		s.table,
	)

	var date string
	var data []byte
	err := s.pool.QueryRow(ctx, query, excludeDate).Scan(&date, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest snapshot: %w", err)
	}

	snap, err := snapshot.Decode(date, data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", date, err)
	}
	return snap, nil
}

// Write upserts the snapshot row for its run date.
func (s *Store) Write(ctx context.Context, snap scrape.Snapshot) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("snapshot store is not configured")
	}
	if snap.Date == "" {
		return fmt.Errorf("snapshot date is required")
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (run_date, data, row_count)
VALUES ($1, $2, $3)
ON CONFLICT (run_date) DO UPDATE SET data = EXCLUDED.data, row_count = EXCLUDED.row_count`,
		s.table,
	)
	if _, err := s.pool.Exec(ctx, query, snap.Date, data, len(snap.Rows)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
