package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE run_status AS ENUM ('running', 'completed', 'failed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		stream_id TEXT NOT NULL,
		source TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		status run_status NOT NULL DEFAULT 'running',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		last_chunk_index INTEGER NOT NULL DEFAULT 0,
		transcript_text TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_stream ON runs (stream_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_segments (
		run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		start_ms BIGINT NOT NULL,
		end_ms BIGINT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, chunk_index)
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
