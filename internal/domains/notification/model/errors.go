package model

import (
	"errors"
	"fmt"

	"returns-backend/internal/shared/apperr"
)

// ================================================
// ERROR CODES (for API responses)
// ================================================

const (
	ErrCodeNotificationNotFound = "NTF001"
	ErrCodeInvalidNotification  = "NTF002"
	ErrCodePersistFailed        = "NTF003"
)

var (
	ErrNotificationNotFound = fmt.Errorf("notification %w", apperr.ErrNotFound)
	ErrInvalidJSONB         = errors.New("invalid JSONB data")
	ErrMissingRecipient     = fmt.Errorf("notification recipient is required: %w", apperr.ErrValidation)
	ErrMissingTitle         = fmt.Errorf("notification title is required: %w", apperr.ErrValidation)
	ErrRecipientNotFound    = fmt.Errorf("recipient %w", apperr.ErrNotFound)
)

// ================================================
// CUSTOM ERROR TYPE
// ================================================

type NotificationError struct {
	Code    string
	Message string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func (e *NotificationError) ErrorCode() string {
	return e.Code
}

func NewNotificationError(code, message string, err error) *NotificationError {
	return &NotificationError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
