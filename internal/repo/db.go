package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool подключается к Postgres по dsn и проверяет соединение.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
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

const schema = `
	CREATE TABLE IF NOT EXISTS job_outcomes (
		id                   UUID PRIMARY KEY,
		job_key              BIGINT NOT NULL,
		task_type            TEXT NOT NULL,
		process_instance_key BIGINT NOT NULL,
		worker               TEXT NOT NULL DEFAULT '',
		outcome              TEXT NOT NULL,
		fault                TEXT NOT NULL DEFAULT '',
		retries              INT NOT NULL DEFAULT 0,
		error_code           TEXT NOT NULL DEFAULT '',
		error_message        TEXT NOT NULL DEFAULT '',
		variables            JSONB NOT NULL DEFAULT '[]',
		recorded_at          TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS job_outcomes_recorded_at_idx ON job_outcomes (recorded_at DESC);
	CREATE INDEX IF NOT EXISTS job_outcomes_task_type_idx ON job_outcomes (task_type, recorded_at DESC);
`

// EnsureSchema создаёт таблицу журнала, если её нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
