package telegram

import (
	"time"

	"github.com/channelpass/channelpass/internal/config"
	"go.uber.org/fx"
)

// Module wires the Bot API client. The HTTP timeout leaves headroom for the
// long-poll timeout used by getUpdates.
var Module = fx.Module("telegram",
	fx.Provide(func(cfg config.Config) *Client {
		return NewClient(Config{
			BaseURL: cfg.TelegramAPIURL,
			Token:   cfg.TelegramBotToken,
			Timeout: cfg.BotPollTimeout + 10*time.Second,
		})
	}),
)
