package filestore

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/transcript"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcript.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewFileStore(cfg.TranscriptsDir, cfg.WriteSegmentTranscripts), nil
	})
}
