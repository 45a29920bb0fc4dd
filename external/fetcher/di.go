package fetcher

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/source"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (source.Fetcher, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewYTDLPFetcher(c.YTDLPPath, c.FFmpegPath, c.FetchFormat), nil
	})
}
