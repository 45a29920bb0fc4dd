package audio

import "testing"

func rampStream(t *testing.T, sampleRate, channels, frames int) *Stream {
	t.Helper()
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(i / channels)
	}
	s, err := NewStream("ramp", sampleRate, channels, samples)
	if err != nil {
		t.Fatalf("failed to build stream: %v", err)
	}
	return s
}

func TestNewStream_RejectsBadShape(t *testing.T) {
	if _, err := NewStream("x", 0, 1, nil); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewStream("x", 16000, 0, nil); err == nil {
		t.Fatal("expected error for zero channels")
	}
	if _, err := NewStream("x", 16000, 2, make([]int16, 3)); err == nil {
		t.Fatal("expected error for ragged interleaving")
	}
}

func TestStream_Duration(t *testing.T) {
	s := rampStream(t, 8000, 2, 8000*5+40)
	if s.Frames() != 40040 {
		t.Fatalf("unexpected frames: %d", s.Frames())
	}
	if s.DurationMs() != 5005 {
		t.Fatalf("unexpected duration: %d", s.DurationMs())
	}
}

func TestStream_Slice(t *testing.T) {
	s := rampStream(t, 1000, 2, 5000)

	got := s.Slice(1500, 3500)
	if len(got) != 2000*2 {
		t.Fatalf("unexpected slice length: %d", len(got))
	}
	if got[0] != 1500 || got[len(got)-1] != 3499 {
		t.Fatalf("unexpected slice bounds: first=%d last=%d", got[0], got[len(got)-1])
	}

	tail := s.Slice(4500, 6500)
	if len(tail) != 500*2 {
		t.Fatalf("expected tail to clip at stream end, got %d samples", len(tail))
	}
}

func TestStream_SliceKeepsTrailingFrames(t *testing.T) {
	// 16010 frames at 16 kHz is 1000.625 ms; the partial millisecond belongs to the last slice.
	s := rampStream(t, 16000, 1, 16000+10)
	got := s.Slice(0, s.DurationMs())
	if len(got) != 16010 {
		t.Fatalf("expected trailing frames to be included, got %d", len(got))
	}
}

func TestStream_SliceIsReadOnlyView(t *testing.T) {
	s := rampStream(t, 1000, 1, 100)
	got := s.Slice(10, 20)
	if cap(got) != len(got) {
		t.Fatalf("expected capped slice, cap=%d len=%d", cap(got), len(got))
	}
}
