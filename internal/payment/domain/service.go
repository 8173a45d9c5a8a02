package domain

import "context"

// AccessGranter lifts the channel restriction for a paying user and returns
// the invite link. Implementations must be idempotent per user.
type AccessGranter interface {
	Grant(ctx context.Context, userID int64) (string, error)
	InviteLink(ctx context.Context) (string, error)
}

// AccessNotifier delivers the invite link to a user outside an interactive
// exchange (the asynchronous confirmation path).
type AccessNotifier interface {
	AccessGranted(ctx context.Context, userID int64, inviteLink string) error
}
