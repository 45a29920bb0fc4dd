package discord

import (
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, notify.NotifierDiscord, func(i do.Injector) (notify.Notifier, error) {
		c := do.MustInvoke[*config.Config](i)
		n, err := NewNotifier(c.DiscordToken, c.DiscordChannelID)
		if err != nil {
			return nil, err
		}
		return n, nil
	})
}
