// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores need; pgxmock pools satisfy
// it too, which keeps the stores testable without a database.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Connect creates a pgx connection pool from a DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables the stores rely on when they do not
// exist yet, so a fresh database is usable without an external migration
// step.
func EnsureSchema(ctx context.Context, pool Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			gender TEXT,
			age_from INTEGER,
			age_to INTEGER,
			location TEXT,
			interests TEXT,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			agent_id TEXT REFERENCES agents (id),
			goal TEXT NOT NULL,
			seed TEXT,
			status TEXT NOT NULL,
			error_text TEXT,
			submitted_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trace_logs (
			task_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			action_id TEXT PRIMARY KEY,
			action_type TEXT NOT NULL,
			context TEXT,
			target_url TEXT,
			UNIQUE (task_id, step)
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			url TEXT PRIMARY KEY,
			blob_path TEXT NOT NULL,
			blob_uri TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
