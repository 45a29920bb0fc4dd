package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/segment"
)

func TestWAVChunkWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWAVChunkWriter(filepath.Join(dir, "segments"))
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}

	path, err := w.Write(context.Background(), segment.ChunkFile{
		StreamID:   "talk",
		Index:      2,
		SampleRate: audio.CanonicalSampleRate,
		Samples:    samples,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "talk_segment_02.wav" {
		t.Fatalf("unexpected chunk path: %s", path)
	}

	stream, err := NewWAVDecoder().Decode(context.Background(), "talk", path)
	if err != nil {
		t.Fatalf("failed to decode written chunk: %v", err)
	}
	if stream.SampleRate() != audio.CanonicalSampleRate || stream.Channels() != 1 {
		t.Fatalf("unexpected format: %d Hz, %d ch", stream.SampleRate(), stream.Channels())
	}
	got := stream.Slice(0, stream.DurationMs())
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestWAVChunkWriter_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}
	w := NewWAVChunkWriter(filepath.Join(blocker, "segments"))
	if _, err := w.Write(context.Background(), segment.ChunkFile{StreamID: "talk", Index: 1, SampleRate: 16000}); err == nil {
		t.Fatal("expected error when segments dir cannot be created")
	}
}

func TestWAVDecoder_RejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	_, err := NewWAVDecoder().Decode(context.Background(), "fake", path)
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestToInt16(t *testing.T) {
	cases := []struct {
		v, depth int
		want     int16
	}{
		{v: 128, depth: 8, want: 0},
		{v: 255, depth: 8, want: 127 << 8},
		{v: -1234, depth: 16, want: -1234},
		{v: 0x7fffff, depth: 24, want: 0x7fff},
		{v: -0x80000000, depth: 32, want: -0x8000},
	}
	for _, tc := range cases {
		if got := toInt16(tc.v, tc.depth); got != tc.want {
			t.Fatalf("toInt16(%d, %d) = %d, want %d", tc.v, tc.depth, got, tc.want)
		}
	}
}

func TestFFmpegDecoder_ParsesPCM(t *testing.T) {
	var gotArgs []string
	d := &FFmpegDecoder{
		binary: "ffmpeg",
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "ffmpeg" {
				t.Fatalf("unexpected binary: %s", name)
			}
			gotArgs = args
			neg := int16(-2)
			out := make([]byte, 6)
			binary.LittleEndian.PutUint16(out[0:], uint16(neg))
			binary.LittleEndian.PutUint16(out[2:], 7)
			binary.LittleEndian.PutUint16(out[4:], 300)
			return out, nil
		},
	}

	stream, err := d.Decode(context.Background(), "vid", "/in/vid_audio.m4a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.SampleRate() != 16000 || stream.Channels() != 1 || stream.Frames() != 3 {
		t.Fatalf("unexpected stream shape: %d Hz %d ch %d frames", stream.SampleRate(), stream.Channels(), stream.Frames())
	}
	if got := stream.Slice(0, stream.DurationMs()); got[0] != -2 || got[2] != 300 {
		t.Fatalf("unexpected samples: %v", got)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i /in/vid_audio.m4a", "-ac 1", "-ar 16000", "-f s16le", "pipe:1"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestFFmpegDecoder_WrapsRunnerError(t *testing.T) {
	d := &FFmpegDecoder{
		binary: "ffmpeg",
		run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1: invalid data found")
		},
	}
	_, err := d.Decode(context.Background(), "vid", "/in/broken.mp3")
	if err == nil || !strings.Contains(err.Error(), "/in/broken.mp3") {
		t.Fatalf("expected wrapped error mentioning path, got %v", err)
	}
}

func TestFFmpegChunkWriter_PipesPCMIntoCompressedChunk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "segments")
	w := NewFFmpegChunkWriter("ffmpeg", dir, config.ChunkFormatM4A, 64)
	var gotArgs []string
	var gotPCM []byte
	w.run = func(_ context.Context, stdin io.Reader, name string, args ...string) error {
		if name != "ffmpeg" {
			t.Fatalf("unexpected binary: %s", name)
		}
		gotArgs = args
		b, err := io.ReadAll(stdin)
		if err != nil {
			t.Fatalf("failed to read stdin: %v", err)
		}
		gotPCM = b
		return os.WriteFile(args[len(args)-1], []byte("m4a"), 0o600)
	}

	path, err := w.Write(context.Background(), segment.ChunkFile{
		StreamID:   "talk",
		Index:      3,
		SampleRate: audio.CanonicalSampleRate,
		Samples:    []int16{-2, 7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "talk_segment_03.m4a" {
		t.Fatalf("unexpected chunk path: %s", path)
	}
	if len(gotPCM) != 4 || int16(binary.LittleEndian.Uint16(gotPCM)) != -2 || binary.LittleEndian.Uint16(gotPCM[2:]) != 7 {
		t.Fatalf("unexpected pcm on stdin: %v", gotPCM)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-f s16le", "-ar 16000", "-ac 1", "-i pipe:0", "-c:a aac", "-b:a 64k"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestFFmpegChunkWriter_OpusAndFailureCleanup(t *testing.T) {
	dir := t.TempDir()
	w := NewFFmpegChunkWriter("", dir, config.ChunkFormatOpus, 32)
	if w.Ext() != "ogg" || w.binary != "ffmpeg" {
		t.Fatalf("unexpected writer setup: ext=%s binary=%s", w.Ext(), w.binary)
	}
	w.run = func(_ context.Context, _ io.Reader, _ string, args ...string) error {
		if !strings.Contains(strings.Join(args, " "), "-c:a libopus") {
			t.Fatalf("expected libopus codec in %v", args)
		}
		if err := os.WriteFile(args[len(args)-1], []byte("partial"), 0o600); err != nil {
			t.Fatalf("failed to write partial output: %v", err)
		}
		return errors.New("exit status 1: encoder failed")
	}

	_, err := w.Write(context.Background(), segment.ChunkFile{StreamID: "talk", Index: 1, SampleRate: 16000, Samples: []int16{1}})
	if err == nil || !strings.Contains(err.Error(), "encoder failed") {
		t.Fatalf("expected wrapped encoder error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "talk_segment_01.ogg")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial chunk to be removed, got %v", statErr)
	}
}

type stubDecoder struct {
	name  string
	calls *[]string
}

func (s stubDecoder) Decode(_ context.Context, streamID, path string) (*audio.Stream, error) {
	*s.calls = append(*s.calls, s.name+":"+filepath.Base(path))
	return audio.NewStream(streamID, 16000, 1, nil)
}

func TestExtensionDecoder_Routes(t *testing.T) {
	var calls []string
	d := NewExtensionDecoder(stubDecoder{name: "ffmpeg", calls: &calls}, map[string]audio.Decoder{
		".WAV": stubDecoder{name: "wav", calls: &calls},
		"opus": stubDecoder{name: "opus", calls: &calls},
	})
	ctx := context.Background()
	for _, p := range []string{"a.wav", "b.OPUS", "c.m4a", "d"} {
		if _, err := d.Decode(ctx, "id", p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := []string{"wav:a.wav", "opus:b.OPUS", "ffmpeg:c.m4a", "ffmpeg:d"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d: got %s, want %s", i, calls[i], want[i])
		}
	}
}
