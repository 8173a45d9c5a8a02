package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the authoritative payment store. Transition is the single
// mutation primitive: a status-gated compare-and-swap that applies the patch
// iff the current status is in expected. Callers must never read-modify-write
// around it.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, payment *Payment) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, expected []Status, next Status, patch Patch, now time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteTerminalBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationAdapter authenticates and parses one provider's webhook
// payloads. Verify must succeed before Parse output is acted upon.
type NotificationAdapter interface {
	Verify(ctx context.Context, payload []byte, signature string) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}

// AdapterFactory builds a NotificationAdapter for its provider name.
type AdapterFactory interface {
	Provider() string
	NewAdapter(webhookSecret string) (NotificationAdapter, error)
}
