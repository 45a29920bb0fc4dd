package audio

import (
	"context"
	"errors"
	"fmt"
)

const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder turns an audio file into an in-memory Stream.
type Decoder interface {
	Decode(ctx context.Context, streamID, path string) (*Stream, error)
}

// Stream is decoded 16-bit PCM, interleaved by channel. It is never mutated after construction.
type Stream struct {
	id         string
	sampleRate int
	channels   int
	samples    []int16
}

func NewStream(id string, sampleRate, channels int, samples []int16) (*Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}
	return &Stream{
		id:         id,
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples,
	}, nil
}

func (s *Stream) ID() string      { return s.id }
func (s *Stream) SampleRate() int { return s.sampleRate }
func (s *Stream) Channels() int   { return s.channels }

func (s *Stream) Frames() int {
	return len(s.samples) / s.channels
}

func (s *Stream) DurationMs() int64 {
	return int64(s.Frames()) * 1000 / int64(s.sampleRate)
}

// Slice returns the interleaved samples covering [startMs, endMs). The result shares
// memory with the stream and must be treated as read-only.
func (s *Stream) Slice(startMs, endMs int64) []int16 {
	from := s.frameAt(startMs)
	to := s.frameAt(endMs)
	if endMs >= s.DurationMs() {
		to = s.Frames()
	}
	if to < from {
		to = from
	}
	a, b := from*s.channels, to*s.channels
	return s.samples[a:b:b]
}

func (s *Stream) frameAt(ms int64) int {
	if ms <= 0 {
		return 0
	}
	f := int(ms * int64(s.sampleRate) / 1000)
	if f > s.Frames() {
		return s.Frames()
	}
	return f
}
