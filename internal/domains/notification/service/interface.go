package service

import (
	"context"

	"github.com/google/uuid"

	"returns-backend/internal/domains/notification/model"
	"returns-backend/internal/infrastructure/realtime"
)

// ================================================
// DISPATCHER INTERFACE
// ================================================

type Dispatcher interface {
	// Notify persists first, then pushes to live channels and queues the
	// email copy. Push and email never block or fail the caller.
	Notify(ctx context.Context, in model.NotifyInput) (*model.Notification, error)

	ListForUser(ctx context.Context, userID uuid.UUID) (*model.ListNotificationsResponse, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOne(ctx context.Context, id, userID uuid.UUID) error
	DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)

	Subscribe(userID uuid.UUID) *realtime.Subscription
	Unsubscribe(sub *realtime.Subscription)

	// Jobs
	SendEmail(ctx context.Context, notificationID uuid.UUID) error
	CleanupOldRead(ctx context.Context, olderThanDays int) (int64, error)

	Close()
}

// Pusher delivers a persisted notification to the user's live channels
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, n *model.Notification) error
}
