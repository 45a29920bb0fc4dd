package repository

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one pipeline attempt for a stream.
type Run struct {
	ID             string
	StreamID       string
	Source         string
	Provider       string
	Model          string
	Status         RunStatus
	StartedAt      time.Time
	EndedAt        *time.Time
	DurationMs     int64
	ChunkCount     int
	FailureReason  string
	ErrorMessage   string
	LastChunkIndex int
	TranscriptText string
}

type TranscriptSegment struct {
	RunID      string
	ChunkIndex int
	StartMs    int64
	EndMs      int64
	Content    string
}
