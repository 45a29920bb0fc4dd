package collector

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Collector, error) {
		cfg := do.MustInvoke[*config.Config](i)
		searcher, err := do.Invoke[Searcher](i)
		if err != nil {
			return nil, err
		}
		return New(searcher, cfg.SearchResultsDir, cfg.YouTubeMaxResults, cfg.YouTubeMaxPages), nil
	})
}
