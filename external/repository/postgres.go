package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errRunNotFound = errors.New("run not found")

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const postgresRunColumns = `id, stream_id, source, provider, model, status, started_at, ended_at,
	duration_ms, chunk_count, failure_reason, error_message, last_chunk_index, transcript_text`

func scanPostgresRun(row pgx.Row) (*repository.Run, error) {
	var r repository.Run
	var endedAt *time.Time
	err := row.Scan(&r.ID, &r.StreamID, &r.Source, &r.Provider, &r.Model, &r.Status, &r.StartedAt, &endedAt,
		&r.DurationMs, &r.ChunkCount, &r.FailureReason, &r.ErrorMessage, &r.LastChunkIndex, &r.TranscriptText)
	if err != nil {
		return nil, err
	}
	r.EndedAt = endedAt
	return &r, nil
}

func (r *PostgresRepository) CreateRun(ctx context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO runs (id, stream_id, source, provider, model, started_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'running')
		 RETURNING `+postgresRunColumns,
		input.ID, input.StreamID, input.Source, input.Provider, input.Model, input.StartedAt)
	return scanPostgresRun(row)
}

func (r *PostgresRepository) CompleteRun(ctx context.Context, input repository.CompleteRunInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE runs SET status = 'completed', ended_at = $2, duration_ms = $3, chunk_count = $4, transcript_text = $5
		 WHERE id = $1`,
		input.RunID, input.EndedAt, input.DurationMs, input.ChunkCount, input.TranscriptText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete run %s: %w", input.RunID, errRunNotFound)
	}

	batch := &pgx.Batch{}
	for _, seg := range input.Segments {
		batch.Queue(
			`INSERT INTO run_segments (run_id, chunk_index, start_ms, end_ms, content)
			 VALUES ($1, $2, $3, $4, $5)`,
			input.RunID, seg.ChunkIndex, seg.StartMs, seg.EndMs, seg.Content)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) FailRun(ctx context.Context, input repository.FailRunInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE runs SET status = 'failed', ended_at = $2, failure_reason = $3, error_message = $4, last_chunk_index = $5
		 WHERE id = $1`,
		input.RunID, input.EndedAt, input.Reason, input.ErrorMessage, input.LastChunkIndex)
	return err
}

func (r *PostgresRepository) GetLatestRunByStream(ctx context.Context, streamID string) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+`
		 FROM runs WHERE stream_id = $1
		 ORDER BY started_at DESC
		 LIMIT 1`,
		streamID)
	run, err := scanPostgresRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

func (r *PostgresRepository) ListSegmentsByRunID(ctx context.Context, runID string) ([]repository.TranscriptSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT run_id, chunk_index, start_ms, end_ms, content
		 FROM run_segments WHERE run_id = $1 ORDER BY chunk_index ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.RunID, &seg.ChunkIndex, &seg.StartMs, &seg.EndMs, &seg.Content); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
