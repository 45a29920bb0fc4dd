package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/source"
)

// YTDLPFetcher pipes the best audio-only stream from yt-dlp into ffmpeg, which writes a
// mono 16 kHz file in the configured format.
type YTDLPFetcher struct {
	ytdlp  string
	ffmpeg string
	format string
}

func NewYTDLPFetcher(ytdlpPath, ffmpegPath, format string) *YTDLPFetcher {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if format == "" {
		format = config.FetchFormatM4A
	}
	return &YTDLPFetcher{ytdlp: ytdlpPath, ffmpeg: ffmpegPath, format: format}
}

// OutputPath is where Fetch writes the audio for streamID.
func (f *YTDLPFetcher) OutputPath(dir, streamID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_audio.%s", streamID, f.format))
}

func (f *YTDLPFetcher) Fetch(ctx context.Context, src source.Source, dir string) (string, error) {
	if !src.IsRemote() {
		return "", fmt.Errorf("fetch %s: %w", src.Raw, source.ErrUnsupportedSource)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := f.OutputPath(dir, src.StreamID)
	codec, err := codecArgs(f.format)
	if err != nil {
		return "", err
	}

	logger := logging.WithStream(src.StreamID)
	logger.Info().Str("url", src.Location).Str("format", f.format).Msg("downloading audio")

	pr, pw, err := os.Pipe()
	if err != nil {
		return "", err
	}
	var dlStderr, convStderr bytes.Buffer
	dl := exec.CommandContext(ctx, f.ytdlp, downloadArgs(src.Location)...)
	dl.Stdout = pw
	dl.Stderr = &dlStderr
	conv := exec.CommandContext(ctx, f.ffmpeg, convertArgs(codec, out)...)
	conv.Stdin = pr
	conv.Stderr = &convStderr

	if err := conv.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return "", fmt.Errorf("start %s: %w", f.ffmpeg, err)
	}
	if err := dl.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		_ = conv.Wait()
		return "", fmt.Errorf("start %s: %w", f.ytdlp, err)
	}
	// Both children hold their own copies of the pipe ends.
	_ = pr.Close()
	_ = pw.Close()

	dlErr := dl.Wait()
	convErr := conv.Wait()
	if dlErr != nil || convErr != nil {
		_ = os.Remove(out)
		return "", errors.Join(
			commandError(f.ytdlp, dlErr, dlStderr.String()),
			commandError(f.ffmpeg, convErr, convStderr.String()),
		)
	}

	logger.Info().Str("path", out).Msg("audio downloaded")
	return out, nil
}

func commandError(name string, err error, stderr string) error {
	if err == nil {
		return nil
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %w", name, err)
}

func downloadArgs(url string) []string {
	return []string{"-f", "bestaudio", "--no-playlist", "-q", "-o", "-", url}
}

func codecArgs(format string) ([]string, error) {
	switch format {
	case config.FetchFormatM4A:
		return []string{"-c:a", "aac", "-b:a", "128k"}, nil
	case config.FetchFormatOpus:
		return []string{"-c:a", "libopus", "-b:a", "128k"}, nil
	case config.FetchFormatWAV:
		return []string{"-c:a", "pcm_s16le"}, nil
	default:
		return nil, fmt.Errorf("unknown fetch format %q", format)
	}
}

func convertArgs(codec []string, out string) []string {
	args := []string{
		"-y", "-nostdin", "-v", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", fmt.Sprint(audio.CanonicalChannels),
		"-ar", fmt.Sprint(audio.CanonicalSampleRate),
	}
	args = append(args, codec...)
	return append(args, out)
}
