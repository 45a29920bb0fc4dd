package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"

	"github.com/foxseedlab/chunkscribe/internal/audio"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegDecoder decodes any container ffmpeg understands. Output is already canonical
// (mono 16 kHz) so long compressed sources stay small in memory.
type FFmpegDecoder struct {
	binary string
	run    commandRunner
}

func NewFFmpegDecoder(binary string) *FFmpegDecoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegDecoder{binary: binary, run: runCommand}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, streamID, path string) (*audio.Stream, error) {
	out, err := d.run(ctx, d.binary, decodeArgs(path)...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	samples := make([]int16, len(out)/2)
	if err := binary.Read(bytes.NewReader(out), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("read pcm from ffmpeg: %w", err)
	}
	return audio.NewStream(streamID, audio.CanonicalSampleRate, audio.CanonicalChannels, samples)
}

func decodeArgs(path string) []string {
	return []string{
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"pipe:1",
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}
