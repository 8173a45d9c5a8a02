package domain

import "errors"

var (
	ErrNotFound         = errors.New("payment_not_found")
	ErrUserMismatch     = errors.New("payment_user_mismatch")
	ErrStateConflict    = errors.New("payment_state_conflict")
	ErrAlreadyCompleted = errors.New("payment_already_completed")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidProvider  = errors.New("invalid_provider")
)
