// Package apperr holds the lifecycle error taxonomy shared by every domain.
// Domain errors wrap one of these sentinels so handlers and callers can
// branch with errors.Is regardless of which domain raised them.
package apperr

import "errors"

var (
	// ErrValidation: malformed or ineligible request. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition: state machine violation
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification: optimistic lock conflict. Callers may
	// re-read and retry once.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAlreadyRefunded is success-equivalent: the desired end state is
	// already reached.
	ErrAlreadyRefunded = errors.New("already refunded")

	// ErrPaymentCollaborator: payment provider failed or timed out
	ErrPaymentCollaborator = errors.New("payment provider error")

	// ErrNotFound covers both missing and not-owned entities
	ErrNotFound = errors.New("not found")
)
