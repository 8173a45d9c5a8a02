package provider

import (
	"github.com/channelpass/channelpass/internal/config"
	providerdomain "github.com/channelpass/channelpass/internal/provider/domain"
	"github.com/channelpass/channelpass/internal/provider/yookassa"
	"go.uber.org/fx"
)

// Module wires the upstream payment provider client.
var Module = fx.Module("provider",
	fx.Provide(func(cfg config.Config) providerdomain.Provider {
		return yookassa.NewClient(yookassa.Config{
			BaseURL:   cfg.ProviderAPIURL,
			ShopID:    cfg.ProviderShopID,
			SecretKey: cfg.ProviderSecretKey,
			Timeout:   cfg.ProviderTimeout,
		})
	}),
)
