package bot

import (
	"context"

	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	"go.uber.org/fx"
)

// Module wires the bot loop and the async invite notifier.
var Module = fx.Module("bot",
	fx.Provide(NewNotifier),
	fx.Provide(func(n *Notifier) paymentdomain.AccessNotifier { return n }),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, b *Bot) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				b.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				b.Stop()
				return nil
			},
		})
	}),
)
