package model

import (
	"fmt"

	"returns-backend/internal/shared/apperr"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeOrderNotFound      = "ORD001"
	ErrCodeVersionMismatch    = "ORD003"
	ErrCodeRefundInProgress   = "ORD018"
	ErrCodeInvalidRefundState = "ORD019"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrOrderNotFound    = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrVersionMismatch  = fmt.Errorf("version mismatch - concurrent modification detected: %w", apperr.ErrConcurrentModification)
	ErrRefundInProgress = fmt.Errorf("refund already in progress: %w", apperr.ErrConcurrentModification)
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type OrderError struct {
	Code    string
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func (e *OrderError) ErrorCode() string {
	return e.Code
}

// NewOrderError creates a new OrderError
func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
