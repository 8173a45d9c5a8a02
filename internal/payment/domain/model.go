package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a payment. Transitions only move forward
// along the table in service.Orchestrator; terminal states never regress.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingCapture Status = "awaiting_capture"
	StatusCompleted       Status = "completed"
	StatusCanceled        Status = "canceled"
	StatusFailed          Status = "failed"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// Payment is the authoritative record of one purchase attempt.
type Payment struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID            int64             `json:"user_id" gorm:"not null;index"`
	ProviderPaymentID string            `json:"provider_payment_id" gorm:"type:text;not null;default:''"`
	Status            Status            `json:"status" gorm:"type:text;not null"`
	Metadata          datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Metadata keys round-tripped through the provider for correlation.
const (
	MetaPaymentID = "payment_id"
	MetaUserID    = "user_id"
)

// Patch carries the optional field updates applied by a successful transition.
// ProviderPaymentID is write-once: the repository never overwrites a non-empty
// value.
type Patch struct {
	ProviderPaymentID string
}

const (
	EventWaitingForCapture = "payment.waiting_for_capture"
	EventSucceeded         = "payment.succeeded"
	EventCanceled          = "payment.canceled"
)

// Notification is the canonical provider notification parsed by adapters
// after signature verification.
type Notification struct {
	Event             string
	ProviderPaymentID string
	ProviderStatus    string
	PaymentID         string
	UserID            int64
	RawPayload        []byte
}
