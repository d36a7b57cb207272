package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB — общий интерфейс pgxpool.Pool и pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool открывает пул соединений с PostgreSQL и проверяет доступность БД.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// schema — таблицы истории run.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          uuid PRIMARY KEY,
	flow_name   text        NOT NULL,
	flow_path   text,
	status      text        NOT NULL,
	trigger     text        NOT NULL,
	vars        jsonb,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz,
	log_path    text,
	error       text
);

CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id      uuid    NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	idx         integer NOT NULL,
	step_id     text    NOT NULL,
	type        text    NOT NULL,
	name        text    NOT NULL,
	status      text    NOT NULL,
	result      jsonb   NOT NULL,
	duration_ms bigint  NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
