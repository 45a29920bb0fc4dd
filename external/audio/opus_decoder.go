//go:build opus

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/hraban/opus"
)

const (
	// libopusfile always decodes to 48 kHz regardless of the encoder's input rate.
	opusSampleRate = 48000
	opusReadFrames = 5760
)

// OpusDecoder reads mono Ogg Opus files, which is what the fetcher writes for FETCH_FORMAT=opus.
type OpusDecoder struct{}

func NewOpusDecoder(_ audio.Decoder) audio.Decoder {
	return &OpusDecoder{}
}

func (d *OpusDecoder) Decode(ctx context.Context, streamID, path string) (*audio.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	s, err := opus.NewStream(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, audio.ErrUnsupportedFormat, err)
	}
	defer func() {
		_ = s.Close()
	}()

	pcm := make([]int16, opusReadFrames)
	var samples []int16
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode opus %s: %w", path, err)
		}
		samples = append(samples, pcm[:n]...)
	}
	return audio.NewStream(streamID, opusSampleRate, 1, samples)
}
