package domain

import (
	"context"
	"errors"
	"fmt"
)

// Provider-side payment statuses as reported by the upstream API.
const (
	StatusPending           = "pending"
	StatusWaitingForCapture = "waiting_for_capture"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
)

// CreateRequest describes the payment to create upstream. Metadata is
// round-tripped back in notifications and must carry the correlation ids.
type CreateRequest struct {
	Amount      string
	Currency    string
	ReturnURL   string
	Description string
	Metadata    map[string]string
}

// CreateResult is the upstream acknowledgment of a created payment.
type CreateResult struct {
	ProviderPaymentID string
	Status            string
	ConfirmationURL   string
}

// PaymentInfo is the upstream view of an existing payment.
type PaymentInfo struct {
	ProviderPaymentID string
	Status            string
}

// Provider is the upstream payment backend. Calls do not retry internally;
// every call carries the client's bounded timeout.
type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	GetPayment(ctx context.Context, providerPaymentID string) (*PaymentInfo, error)
	CapturePayment(ctx context.Context, providerPaymentID string) error
	CancelPayment(ctx context.Context, providerPaymentID string) error
}

// Error is a classified upstream failure. Transient failures (network,
// timeouts, 5xx, 429) may be retried by the caller; permanent ones may not.
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Transient  bool
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("provider %s: status %d", e.Op, e.StatusCode)
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Transient
	}
	return false
}
