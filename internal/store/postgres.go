package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBPool abstracts *pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
    id          UUID PRIMARY KEY,
    kind        TEXT NOT NULL,
    ok          BOOLEAN NOT NULL,
    status      TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    report      JSONB NOT NULL
);`

// Postgres is the store over a PostgreSQL database.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// OpenPostgres connects a pool to dsn and prepares the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	s, err := NewPostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres verifies the connection and creates the tables when missing.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("store")}, nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO preferences (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            updated_at = EXCLUDED.updated_at;`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM preferences WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan preference key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return keys, nil
}

func (s *Postgres) RecordRun(ctx context.Context, r RunRecord) error {
	report := r.Report
	if len(report) == 0 {
		report = []byte("{}")
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO runs (id, kind, ok, status, started_at, finished_at, report)
        VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		r.ID, r.Kind, r.OK, r.Status, r.StartedAt.UTC(), r.FinishedAt.UTC(), report)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return nil
}

func (s *Postgres) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
        SELECT id, kind, ok, status, started_at, finished_at, report
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.OK, &r.Status, &r.StartedAt, &r.FinishedAt, &r.Report); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
