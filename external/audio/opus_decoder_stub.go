//go:build !opus

package audio

import "github.com/foxseedlab/chunkscribe/internal/audio"

// NewOpusDecoder without the opus build tag hands Ogg Opus files to the fallback decoder.
func NewOpusDecoder(fallback audio.Decoder) audio.Decoder {
	return fallback
}
