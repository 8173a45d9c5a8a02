package access

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/channelpass/channelpass/internal/telegram"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ChatAPI is the slice of the chat transport the granter needs.
type ChatAPI interface {
	ExportChatInviteLink(ctx context.Context, chatID string) (string, error)
	UnbanChatMember(ctx context.Context, chatID string, userID int64) error
}

// Granter lifts channel restrictions and hands out the invite link. The link
// is fetched once per process and cached; concurrent first callers collapse
// into a single upstream fetch.
type Granter struct {
	chat    ChatAPI
	chatID  string
	log     *zap.Logger
	fetches singleflight.Group

	mu   sync.RWMutex
	link string
}

func NewGranter(chat ChatAPI, chatID string, log *zap.Logger) *Granter {
	return &Granter{
		chat:   chat,
		chatID: chatID,
		log:    log.Named("access"),
	}
}

// InviteLink returns the cached channel invite link, fetching it on first use.
// All concurrent first callers observe the same value or the same error.
func (g *Granter) InviteLink(ctx context.Context) (string, error) {
	g.mu.RLock()
	link := g.link
	g.mu.RUnlock()
	if link != "" {
		return link, nil
	}

	value, err, _ := g.fetches.Do("invite_link", func() (any, error) {
		g.mu.RLock()
		cached := g.link
		g.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		fetched, err := g.chat.ExportChatInviteLink(ctx, g.chatID)
		if err != nil {
			return "", err
		}

		g.mu.Lock()
		g.link = fetched
		g.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Grant lifts the user's restriction and returns the invite link. Granting an
// already unrestricted user is a success: duplicate triggers are suppressed
// upstream by the orchestrator's CAS, but the grant itself stays idempotent.
func (g *Granter) Grant(ctx context.Context, userID int64) (string, error) {
	if err := g.chat.UnbanChatMember(ctx, g.chatID, userID); err != nil {
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
			g.log.Debug("user was not restricted", zap.Int64("user_id", userID))
		} else {
			return "", err
		}
	}
	return g.InviteLink(ctx)
}
