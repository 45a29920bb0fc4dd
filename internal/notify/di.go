package notify

import (
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Notifier, error) {
		fanout := NewFanout()
		for _, name := range []string{NotifierWebhook, NotifierDiscord, NotifierKafka} {
			n, err := do.InvokeNamed[Notifier](i, name)
			if err != nil {
				return nil, err
			}
			fanout.Add(name, n)
		}
		return fanout, nil
	})
}
