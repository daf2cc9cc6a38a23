package model

import (
	"fmt"

	"returns-backend/internal/shared/apperr"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeReturnNotFound      = "RET001"
	ErrCodeInvalidRequest      = "RET002"
	ErrCodeInvalidTransition   = "RET003"
	ErrCodeVersionMismatch     = "RET004"
	ErrCodeOrderNotEligible    = "RET005"
	ErrCodeItemNotOnOrder      = "RET006"
	ErrCodeOpenRequestExists   = "RET007"
	ErrCodeImageUploadDisabled = "RET008"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrReturnNotFound      = fmt.Errorf("return request %w", apperr.ErrNotFound)
	ErrVersionMismatch     = fmt.Errorf("return request version mismatch: %w", apperr.ErrConcurrentModification)
	ErrEmptyItems          = fmt.Errorf("at least one item is required: %w", apperr.ErrValidation)
	ErrItemNotOnOrder      = fmt.Errorf("item is not part of the order: %w", apperr.ErrValidation)
	ErrQuantityExceeded    = fmt.Errorf("return quantity exceeds ordered quantity: %w", apperr.ErrValidation)
	ErrOrderNotEligible    = fmt.Errorf("order is not eligible for return: %w", apperr.ErrValidation)
	ErrOpenRequestExists   = fmt.Errorf("order already has an open return request: %w", apperr.ErrValidation)
	ErrImageUploadDisabled = fmt.Errorf("proof image upload is not configured: %w", apperr.ErrValidation)
)

// =====================================================
// CUSTOM ERROR TYPES
// =====================================================
type ReturnError struct {
	Code    string
	Message string
	Err     error
}

func (e *ReturnError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ReturnError) Unwrap() error {
	return e.Err
}

func (e *ReturnError) ErrorCode() string {
	return e.Code
}

func NewReturnError(code, message string, err error) *ReturnError {
	return &ReturnError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidTransitionError names the current and the attempted status
type InvalidTransitionError struct {
	From Status
	To   Status
	Role Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition return request from '%s' to '%s' as %s", e.From, e.To, e.Role)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == apperr.ErrInvalidTransition
}

func (e *InvalidTransitionError) ErrorCode() string {
	return ErrCodeInvalidTransition
}
