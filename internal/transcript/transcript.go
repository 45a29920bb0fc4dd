package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFailedSegment    = errors.New("segment did not transcribe successfully")
	ErrMissingSegment   = errors.New("segment missing from assembly")
	ErrDuplicateSegment = errors.New("segment already placed")
	ErrSegmentRange     = errors.New("segment index out of range")
)

type Segment struct {
	ChunkIndex int
	Text       string
	Succeeded  bool
}

type Transcript struct {
	StreamID string
	Text     string
	Segments []Segment
}

// Store persists transcripts keyed by stream id. Save reports saved=false without error when
// a transcript for the stream already exists; the existing one is left untouched. An error
// with saved=true means the transcript was published and only a follow-up write failed.
type Store interface {
	Exists(ctx context.Context, streamID string) (bool, error)
	Save(ctx context.Context, t *Transcript) (saved bool, err error)
}

// FileName is the persisted name of a stream's full transcript.
func FileName(streamID string) string {
	return streamID + "_full_transcript.txt"
}

// SegmentFileName is the persisted name of one chunk's transcript.
func SegmentFileName(streamID string, chunkIndex int) string {
	return fmt.Sprintf("%s_segment_%02d_transcript.txt", streamID, chunkIndex)
}

// Reassemble joins segment texts in the given order with a single newline, trimming each.
// Overlap between neighbouring chunks is not reconciled, so words at a boundary can repeat.
func Reassemble(streamID string, segments []Segment) (*Transcript, error) {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		if !seg.Succeeded {
			return nil, fmt.Errorf("reassemble %s chunk %d: %w", streamID, seg.ChunkIndex, ErrFailedSegment)
		}
		lines = append(lines, strings.TrimSpace(seg.Text))
	}
	kept := make([]Segment, len(segments))
	copy(kept, segments)
	return &Transcript{
		StreamID: streamID,
		Text:     strings.Join(lines, "\n"),
		Segments: kept,
	}, nil
}
