package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"returns-backend/internal/shared/apperr"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeAlreadyRefunded = "RFD001"
	ErrCodeProvider        = "RFD002"
	ErrCodeInvalidKind     = "RFD003"
	ErrCodeMissingAmount   = "RFD004"
)

var (
	ErrAlreadyRefunded = fmt.Errorf("refund already completed: %w", apperr.ErrAlreadyRefunded)
	ErrInvalidKind     = fmt.Errorf("unknown refund kind: %w", apperr.ErrValidation)
	ErrMissingAmount   = fmt.Errorf("refund amount is not set: %w", apperr.ErrValidation)

	// ErrProviderInFlight: the provider is still processing an earlier call
	// with the same idempotency key. The outcome is unknown, so it is handled
	// like a timeout and the retry must reuse the key.
	ErrProviderInFlight = errors.New("refund with this idempotency key is still in flight")
)

// ProviderError is a payment collaborator failure: transport error,
// timeout or cancellation. errors.Is matches both apperr.ErrPaymentCollaborator
// and the wrapped cause (e.g. context.DeadlineExceeded).
type ProviderError struct {
	Kind        Kind
	ReferenceID uuid.UUID
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider refund failed for %s %s: %v", e.Kind, e.ReferenceID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == apperr.ErrPaymentCollaborator
}

func (e *ProviderError) ErrorCode() string {
	return ErrCodeProvider
}
