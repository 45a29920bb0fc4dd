package events

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, notify.NotifierKafka, func(i do.Injector) (notify.Notifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return New(Config{Brokers: c.KafkaBrokers, Topic: c.KafkaTopic}), nil
	})
}
