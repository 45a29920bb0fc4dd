package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/segment"
)

type pipeRunner func(ctx context.Context, stdin io.Reader, name string, args ...string) error

// FFmpegChunkWriter encodes chunks to a compressed container by piping canonical PCM
// through ffmpeg, so a full-length window stays under the provider upload limit.
type FFmpegChunkWriter struct {
	binary      string
	dir         string
	format      string
	bitrateKbps int
	run         pipeRunner
}

func NewFFmpegChunkWriter(binary, dir, format string, bitrateKbps int) *FFmpegChunkWriter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegChunkWriter{
		binary:      binary,
		dir:         dir,
		format:      format,
		bitrateKbps: bitrateKbps,
		run:         runPipe,
	}
}

func (w *FFmpegChunkWriter) Ext() string {
	if w.format == config.ChunkFormatOpus {
		return "ogg"
	}
	return "m4a"
}

func (w *FFmpegChunkWriter) Write(ctx context.Context, f segment.ChunkFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, chunkFileDirMode); err != nil {
		return "", fmt.Errorf("create segments dir: %w", err)
	}
	path := filepath.Join(w.dir, segment.ChunkFileName(f.StreamID, f.Index, w.Ext()))

	pcm := bytes.NewBuffer(make([]byte, 0, len(f.Samples)*2))
	if err := binary.Write(pcm, binary.LittleEndian, f.Samples); err != nil {
		return "", fmt.Errorf("encode pcm for %s: %w", path, err)
	}
	if err := w.run(ctx, pcm, w.binary, w.encodeArgs(f.SampleRate, path)...); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return "", fmt.Errorf("ffmpeg encode %s: %w (cleanup: %v)", path, err, rmErr)
		}
		return "", fmt.Errorf("ffmpeg encode %s: %w", path, err)
	}
	return path, nil
}

func (w *FFmpegChunkWriter) encodeArgs(sampleRate int, out string) []string {
	codec := "aac"
	if w.format == config.ChunkFormatOpus {
		codec = "libopus"
	}
	return []string{
		"-v", "error",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(audio.CanonicalChannels),
		"-i", "pipe:0",
		"-c:a", codec,
		"-b:a", fmt.Sprintf("%dk", w.bitrateKbps),
		out,
	}
}

func runPipe(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}
