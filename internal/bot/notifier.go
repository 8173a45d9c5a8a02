package bot

import (
	"context"
	"fmt"

	"github.com/channelpass/channelpass/internal/telegram"
	"go.uber.org/zap"
)

// Notifier delivers the invite link when access was granted on the
// asynchronous path, where there is no interactive exchange to reply into.
type Notifier struct {
	client *telegram.Client
	log    *zap.Logger
}

func NewNotifier(client *telegram.Client, log *zap.Logger) *Notifier {
	return &Notifier{
		client: client,
		log:    log.Named("bot.notifier"),
	}
}

func (n *Notifier) AccessGranted(ctx context.Context, userID int64, inviteLink string) error {
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: buttonJoin, URL: inviteLink}},
		},
	}
	return n.client.SendMessage(ctx, userID, fmt.Sprintf(textCompleted, inviteLink), markup)
}
