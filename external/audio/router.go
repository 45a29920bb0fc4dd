package audio

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/chunkscribe/internal/audio"
)

// ExtensionDecoder picks a decoder by file extension and falls back to ffmpeg.
type ExtensionDecoder struct {
	byExt    map[string]audio.Decoder
	fallback audio.Decoder
}

func NewExtensionDecoder(fallback audio.Decoder, byExt map[string]audio.Decoder) *ExtensionDecoder {
	normalized := make(map[string]audio.Decoder, len(byExt))
	for ext, d := range byExt {
		normalized[strings.ToLower(strings.TrimPrefix(ext, "."))] = d
	}
	return &ExtensionDecoder{byExt: normalized, fallback: fallback}
}

func (d *ExtensionDecoder) Decode(ctx context.Context, streamID, path string) (*audio.Stream, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if dec, ok := d.byExt[ext]; ok {
		return dec.Decode(ctx, streamID, path)
	}
	return d.fallback.Decode(ctx, streamID, path)
}
