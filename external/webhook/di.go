package webhook

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, notify.NotifierWebhook, func(i do.Injector) (notify.Notifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.TranscriptWebhookURL), nil
	})
}
