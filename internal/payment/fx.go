package payment

import (
	"github.com/channelpass/channelpass/internal/access"
	"github.com/channelpass/channelpass/internal/payment/adapters"
	"github.com/channelpass/channelpass/internal/payment/adapters/yookassa"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	"github.com/channelpass/channelpass/internal/payment/repository"
	"github.com/channelpass/channelpass/internal/payment/retention"
	paymentservice "github.com/channelpass/channelpass/internal/payment/service"
	"github.com/channelpass/channelpass/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			yookassa.NewFactory(),
		)
	}),
	fx.Provide(func(granter *access.Granter) paymentdomain.AccessGranter { return granter }),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
	retention.Module,
)
