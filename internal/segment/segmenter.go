package segment

import (
	"context"
	"fmt"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/logging"
)

// Chunk is a persisted window of a stream, resampled to mono 16 kHz.
type Chunk struct {
	Window
	Path string
}

// ChunkFile is the payload handed to a ChunkWriter.
type ChunkFile struct {
	StreamID   string
	Index      int
	SampleRate int
	Samples    []int16
}

type ChunkWriter interface {
	Write(ctx context.Context, f ChunkFile) (string, error)
	Ext() string
}

// ChunkFileName is the deterministic scratch name for a chunk: <stream>_segment_<NN>.<ext>.
func ChunkFileName(streamID string, index int, ext string) string {
	return fmt.Sprintf("%s_segment_%02d.%s", streamID, index, ext)
}

type Segmenter struct {
	writer ChunkWriter
	params Params
}

func NewSegmenter(writer ChunkWriter, params Params) *Segmenter {
	return &Segmenter{writer: writer, params: params}
}

func (s *Segmenter) Params() Params {
	return s.params
}

// Segment writes every planned window of stream as a canonical chunk file, in order.
// A write failure stops segmentation; files already written are left in place.
func (s *Segmenter) Segment(ctx context.Context, stream *audio.Stream) ([]Chunk, error) {
	windows, err := Plan(stream.DurationMs(), s.params)
	if err != nil {
		return nil, err
	}

	logger := logging.WithStream(stream.ID())
	logger.Info().
		Int64("duration_ms", stream.DurationMs()).
		Int("chunks", len(windows)).
		Int64("chunk_length_ms", s.params.ChunkLengthMs).
		Int64("overlap_ms", s.params.OverlapMs).
		Msg("segmenting stream")

	chunks := make([]Chunk, 0, len(windows))
	lastWritten := 0
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segment stream %s: %w", stream.ID(), err)
		}
		pcm := audio.ToCanonical(stream.Slice(w.StartMs, w.EndMs), stream.SampleRate(), stream.Channels())
		path, err := s.writer.Write(ctx, ChunkFile{
			StreamID:   stream.ID(),
			Index:      w.Index,
			SampleRate: audio.CanonicalSampleRate,
			Samples:    pcm,
		})
		if err != nil {
			return nil, &ChunkPersistenceError{
				StreamID:         stream.ID(),
				Index:            w.Index,
				LastWrittenIndex: lastWritten,
				Err:              err,
			}
		}
		lastWritten = w.Index
		chunks = append(chunks, Chunk{Window: w, Path: path})
		logger.Debug().Int("chunk_index", w.Index).Str("path", path).Msg("chunk written")
	}
	return chunks, nil
}
