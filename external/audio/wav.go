package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/segment"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavPCMFormat     = 1
	wavReadFrames    = 4096
	chunkBitDepth    = 16
	chunkFileExtWAV  = "wav"
	chunkFileDirMode = 0o755
)

type WAVDecoder struct{}

func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{}
}

func (d *WAVDecoder) Decode(ctx context.Context, streamID, path string) (*audio.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, audio.ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavPCMFormat {
		return nil, fmt.Errorf("%s: wav audio format %d: %w", path, dec.WavAudioFormat, audio.ErrUnsupportedFormat)
	}
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)

	buf := &goaudio.IntBuffer{
		Format: dec.Format(),
		Data:   make([]int, wavReadFrames*channels),
	}
	var samples []int16
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read pcm from %s: %w", path, err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			samples = append(samples, toInt16(v, bitDepth))
		}
		if err == io.EOF {
			break
		}
	}
	return audio.NewStream(streamID, int(dec.SampleRate), channels, samples)
}

func toInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// WAVChunkWriter writes canonical chunks as 16-bit mono PCM WAV files.
type WAVChunkWriter struct {
	dir string
}

func NewWAVChunkWriter(dir string) *WAVChunkWriter {
	return &WAVChunkWriter{dir: dir}
}

func (w *WAVChunkWriter) Ext() string {
	return chunkFileExtWAV
}

func (w *WAVChunkWriter) Write(ctx context.Context, f segment.ChunkFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, chunkFileDirMode); err != nil {
		return "", fmt.Errorf("create segments dir: %w", err)
	}
	path := filepath.Join(w.dir, segment.ChunkFileName(f.StreamID, f.Index, w.Ext()))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	data := make([]int, len(f.Samples))
	for i, s := range f.Samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(out, f.SampleRate, chunkBitDepth, audio.CanonicalChannels, wavPCMFormat)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: audio.CanonicalChannels, SampleRate: f.SampleRate},
		Data:           data,
		SourceBitDepth: chunkBitDepth,
	}); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("finalize %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}
