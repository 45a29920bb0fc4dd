package repository

import (
	"context"
	"time"
)

type CreateRunInput struct {
	ID        string
	StreamID  string
	Source    string
	Provider  string
	Model     string
	StartedAt time.Time
}

type CompleteRunInput struct {
	RunID          string
	EndedAt        time.Time
	DurationMs     int64
	ChunkCount     int
	TranscriptText string
	Segments       []TranscriptSegment
}

// FailRunInput records why a run stopped. LastChunkIndex is the last chunk that
// transcribed successfully, 0 when none did.
type FailRunInput struct {
	RunID          string
	EndedAt        time.Time
	Reason         string
	ErrorMessage   string
	LastChunkIndex int
}

type RunRepository interface {
	CreateRun(ctx context.Context, input CreateRunInput) (*Run, error)
	CompleteRun(ctx context.Context, input CompleteRunInput) error
	FailRun(ctx context.Context, input FailRunInput) error
	// GetLatestRunByStream returns nil without error when the stream has no runs.
	GetLatestRunByStream(ctx context.Context, streamID string) (*Run, error)
}

type TranscriptRepository interface {
	ListSegmentsByRunID(ctx context.Context, runID string) ([]TranscriptSegment, error)
}

type Repository interface {
	RunRepository
	TranscriptRepository
	Close() error
}
