package youtube

import (
	"context"

	"github.com/foxseedlab/chunkscribe/internal/collector"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (collector.Searcher, error) {
		c := do.MustInvoke[*config.Config](i)
		if err := c.ValidateCollector(); err != nil {
			return nil, err
		}
		s, err := NewSearcher(context.Background(), c.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
