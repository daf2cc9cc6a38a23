package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION REPOSITORY INTERFACE
// ================================================

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)

	// ListByUser is ordered newest first (created_at DESC, id DESC)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	MarkEmailed(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteOne fails with ErrNotificationNotFound unless id belongs to userID
	DeleteOne(ctx context.Context, id, userID uuid.UUID) error
	// DeleteMany deletes all of the user's notifications when ids is empty.
	// Otherwise it deletes all ids or none.
	DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)

	DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error)

	// GetRecipient reads the owner's email from the users table
	GetRecipient(ctx context.Context, userID uuid.UUID) (*model.Recipient, error)
}
