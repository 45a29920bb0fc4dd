package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/repository"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		source TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running',
		started_at REAL NOT NULL,
		ended_at REAL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		last_chunk_index INTEGER NOT NULL DEFAULT 0,
		transcript_text TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_stream ON runs (stream_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_segments (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (run_id, chunk_index)
	)`,
}

// SQLiteRepository keeps the run ledger in a local file. Times are stored as fractional
// unix seconds.
type SQLiteRepository struct {
	db *sql.DB
}

func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

const sqliteRunColumns = `id, stream_id, source, provider, model, status, started_at, ended_at,
	duration_ms, chunk_count, failure_reason, error_message, last_chunk_index, transcript_text`

func scanSQLiteRun(row *sql.Row) (*repository.Run, error) {
	var r repository.Run
	var startedAt float64
	var endedAt sql.NullFloat64
	err := row.Scan(&r.ID, &r.StreamID, &r.Source, &r.Provider, &r.Model, &r.Status, &startedAt, &endedAt,
		&r.DurationMs, &r.ChunkCount, &r.FailureReason, &r.ErrorMessage, &r.LastChunkIndex, &r.TranscriptText)
	if err != nil {
		return nil, err
	}
	r.StartedAt = timeFromUnix(startedAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		r.EndedAt = &t
	}
	return &r, nil
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, stream_id, source, provider, model, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'running')`,
		input.ID, input.StreamID, input.Source, input.Provider, input.Model, unixFromTime(input.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return scanSQLiteRun(r.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, input.ID))
}

func (r *SQLiteRepository) CompleteRun(ctx context.Context, input repository.CompleteRunInput) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = 'completed', ended_at = ?, duration_ms = ?, chunk_count = ?, transcript_text = ?
		 WHERE id = ?`,
		unixFromTime(input.EndedAt), input.DurationMs, input.ChunkCount, input.TranscriptText, input.RunID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete run %s: %w", input.RunID, errRunNotFound)
	}

	for _, seg := range input.Segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_segments (run_id, chunk_index, start_ms, end_ms, content) VALUES (?, ?, ?, ?, ?)`,
			input.RunID, seg.ChunkIndex, seg.StartMs, seg.EndMs, seg.Content); err != nil {
			return fmt.Errorf("insert segment %d: %w", seg.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) FailRun(ctx context.Context, input repository.FailRunInput) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = 'failed', ended_at = ?, failure_reason = ?, error_message = ?, last_chunk_index = ?
		 WHERE id = ?`,
		unixFromTime(input.EndedAt), input.Reason, input.ErrorMessage, input.LastChunkIndex, input.RunID)
	return err
}

func (r *SQLiteRepository) GetLatestRunByStream(ctx context.Context, streamID string) (*repository.Run, error) {
	run, err := scanSQLiteRun(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+`
		 FROM runs WHERE stream_id = ?
		 ORDER BY started_at DESC
		 LIMIT 1`,
		streamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

func (r *SQLiteRepository) ListSegmentsByRunID(ctx context.Context, runID string) ([]repository.TranscriptSegment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, chunk_index, start_ms, end_ms, content
		 FROM run_segments WHERE run_id = ? ORDER BY chunk_index ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.RunID, &seg.ChunkIndex, &seg.StartMs, &seg.EndMs, &seg.Content); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
