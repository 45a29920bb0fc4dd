package audio

import (
	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/segment"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Decoder, error) {
		c := do.MustInvoke[*config.Config](i)
		ffmpeg := NewFFmpegDecoder(c.FFmpegPath)
		opus := NewOpusDecoder(ffmpeg)
		return NewExtensionDecoder(ffmpeg, map[string]audio.Decoder{
			"wav":  NewWAVDecoder(),
			"opus": opus,
			"ogg":  opus,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (segment.ChunkWriter, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.ChunkFormat == config.ChunkFormatWAV {
			return NewWAVChunkWriter(c.AudioSegmentsDir), nil
		}
		return NewFFmpegChunkWriter(c.FFmpegPath, c.AudioSegmentsDir, c.ChunkFormat, c.ChunkBitrateKbps), nil
	})
}
