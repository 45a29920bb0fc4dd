package segment

import "fmt"

// InvalidParametersError reports a segmentation request that can never succeed as configured.
type InvalidParametersError struct {
	ChunkLengthMs int64
	OverlapMs     int64
	DurationMs    int64
	Reason        string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid segmentation parameters (chunk=%dms overlap=%dms duration=%dms): %s",
		e.ChunkLengthMs, e.OverlapMs, e.DurationMs, e.Reason)
}

// ChunkPersistenceError reports a chunk that could not be written to scratch storage.
// Chunks up to LastWrittenIndex are on disk; LastWrittenIndex is 0 when none were written.
type ChunkPersistenceError struct {
	StreamID         string
	Index            int
	LastWrittenIndex int
	Err              error
}

func (e *ChunkPersistenceError) Error() string {
	return fmt.Sprintf("persist chunk %d of stream %s (last written chunk %d): %v",
		e.Index, e.StreamID, e.LastWrittenIndex, e.Err)
}

func (e *ChunkPersistenceError) Unwrap() error {
	return e.Err
}
