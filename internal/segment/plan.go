package segment

import "fmt"

const (
	DefaultChunkLengthMs int64 = 2_400_000
	DefaultOverlapMs     int64 = 1_000
)

type Params struct {
	ChunkLengthMs int64
	OverlapMs     int64
}

func (p Params) validate(durationMs int64) error {
	invalid := func(reason string) error {
		return &InvalidParametersError{
			ChunkLengthMs: p.ChunkLengthMs,
			OverlapMs:     p.OverlapMs,
			DurationMs:    durationMs,
			Reason:        reason,
		}
	}
	switch {
	case p.OverlapMs <= 0:
		return invalid("overlap must be positive")
	case p.ChunkLengthMs <= p.OverlapMs:
		return invalid("chunk length must exceed overlap")
	case durationMs <= 0:
		return invalid("stream duration must be positive")
	}
	return nil
}

// Window is one chunk's time span, [StartMs, EndMs), with its 1-based ordinal.
type Window struct {
	Index   int
	StartMs int64
	EndMs   int64
}

func (w Window) DurationMs() int64 {
	return w.EndMs - w.StartMs
}

func (w Window) String() string {
	return fmt.Sprintf("#%02d [%d,%d)", w.Index, w.StartMs, w.EndMs)
}

// Plan computes the chunk windows for a stream of durationMs. Windows start every
// ChunkLengthMs-OverlapMs and are clipped to the stream end; iteration stops once the next
// start reaches the end, so the final window may be short.
func Plan(durationMs int64, p Params) ([]Window, error) {
	if err := p.validate(durationMs); err != nil {
		return nil, err
	}
	if durationMs <= p.ChunkLengthMs {
		return []Window{{Index: 1, StartMs: 0, EndMs: durationMs}}, nil
	}

	step := p.ChunkLengthMs - p.OverlapMs
	windows := make([]Window, 0, durationMs/step+1)
	for start := int64(0); start < durationMs; start += step {
		windows = append(windows, Window{
			Index:   len(windows) + 1,
			StartMs: start,
			EndMs:   min(start+p.ChunkLengthMs, durationMs),
		})
	}
	return windows, nil
}
