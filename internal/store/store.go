// Package store persists a build-history audit log of completed ancestry
// graph builds to PostgreSQL. It is entirely optional: the server runs
// fine with no DATABASE_URL set, falling back to in-memory-only
// operation the same way the teacher's main.go degrades without a DB.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ancestry_runs (
	id          BIGSERIAL PRIMARY KEY,
	root_txid   TEXT NOT NULL,
	node_count  INTEGER NOT NULL,
	edge_count  INTEGER NOT NULL,
	truncated   BOOLEAN NOT NULL,
	built_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ancestry_runs_root_txid_idx ON ancestry_runs (root_txid);
`

// Store wraps a pgx connection pool for the ancestry_runs audit table.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr, pings it, and ensures the
// ancestry_runs table exists.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initSchema(); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("[store] connected to PostgreSQL for ancestry build history")
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to initialize ancestry_runs schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildRecord is one completed (possibly truncated) ancestry build.
type BuildRecord struct {
	RootTxid  string
	NodeCount int
	EdgeCount int
	Truncated bool
	BuiltAt   time.Time
}

// RecordBuild inserts one audit row for a completed graph build.
func (s *Store) RecordBuild(ctx context.Context, rec BuildRecord) error {
	const sql = `
		INSERT INTO ancestry_runs (root_txid, node_count, edge_count, truncated, built_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := s.pool.Exec(ctx, sql, rec.RootTxid, rec.NodeCount, rec.EdgeCount, rec.Truncated, rec.BuiltAt)
	if err != nil {
		return fmt.Errorf("failed to insert ancestry_runs row: %w", err)
	}
	return nil
}

// RecentBuilds returns the most recent limit build-history rows across
// all roots, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const sql = `
		SELECT root_txid, node_count, edge_count, truncated, built_at
		FROM ancestry_runs
		ORDER BY built_at DESC
		LIMIT $1;
	`
	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestry_runs: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		if err := rows.Scan(&rec.RootTxid, &rec.NodeCount, &rec.EdgeCount, &rec.Truncated, &rec.BuiltAt); err != nil {
			return nil, fmt.Errorf("failed to scan ancestry_runs row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
