package pipeline

import (
	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/metrics"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/foxseedlab/chunkscribe/internal/segment"
	"github.com/foxseedlab/chunkscribe/internal/source"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/foxseedlab/chunkscribe/internal/transcript"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*segment.Segmenter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		writer := do.MustInvoke[segment.ChunkWriter](i)
		return segment.NewSegmenter(writer, segment.Params{
			ChunkLengthMs: cfg.ChunkLengthMs,
			OverlapMs:     cfg.ChunkOverlapMs,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		fetcher := do.MustInvoke[source.Fetcher](i)
		decoder := do.MustInvoke[audio.Decoder](i)
		segmenter := do.MustInvoke[*segment.Segmenter](i)
		stt, err := do.Invoke[transcriber.Transcriber](i)
		if err != nil {
			return nil, err
		}
		store := do.MustInvoke[transcript.Store](i)
		repo, err := do.Invoke[repository.Repository](i)
		if err != nil {
			return nil, err
		}
		notifier, err := do.Invoke[notify.Notifier](i)
		if err != nil {
			return nil, err
		}
		m := do.MustInvoke[*metrics.Metrics](i)
		return New(cfg, fetcher, decoder, segmenter, stt, store, repo, notifier, m), nil
	})
}
