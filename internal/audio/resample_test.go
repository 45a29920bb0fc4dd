package audio

import "testing"

func TestToCanonical_MonoPassthrough(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := ToCanonical(in, CanonicalSampleRate, 1)
	if len(out) != len(in) {
		t.Fatalf("unexpected length: %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: %d -> %d", i, in[i], out[i])
		}
	}
	out[0] = 99
	if in[0] != 1 {
		t.Fatal("expected ToCanonical to copy its input")
	}
}

func TestToCanonical_DownmixStereo(t *testing.T) {
	in := []int16{100, 300, -200, 200, 32767, 32767}
	out := ToCanonical(in, CanonicalSampleRate, 2)
	want := []int16{200, 0, 32767}
	if len(out) != len(want) {
		t.Fatalf("unexpected length: %d", len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestToCanonical_Upsample(t *testing.T) {
	in := []int16{0, 100, 200, 300}
	out := ToCanonical(in, 8000, 1)
	if len(out) != 8 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	want := []int16{0, 50, 100, 150, 200, 250, 300, 300}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestToCanonical_Downsample(t *testing.T) {
	in := make([]int16, 48000)
	out := ToCanonical(in, 48000, 1)
	if len(out) != 16000 {
		t.Fatalf("unexpected length: %d", len(out))
	}
}

func TestToCanonical_TinyInputKeepsOneSample(t *testing.T) {
	out := ToCanonical([]int16{42}, 48000, 1)
	if len(out) != 1 || out[0] != 42 {
		t.Fatalf("unexpected output: %v", out)
	}
}
