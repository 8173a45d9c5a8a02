package access

import (
	"github.com/channelpass/channelpass/internal/config"
	"github.com/channelpass/channelpass/internal/telegram"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the access granter against the Bot API client.
var Module = fx.Module("access",
	fx.Provide(func(client *telegram.Client, cfg config.Config, log *zap.Logger) *Granter {
		return NewGranter(client, cfg.ChannelID, log)
	}),
)
