package service

import (
	"context"

	"github.com/google/uuid"

	notificationModel "returns-backend/internal/domains/notification/model"
	orderModel "returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/returns/model"
)

// =====================================================
// RETURN REQUEST STORE
// =====================================================
type ReturnService interface {
	Create(ctx context.Context, userID uuid.UUID, req model.CreateReturnRequest) (*model.ReturnRequest, error)

	// Transition applies one edge of the state machine with a versioned write
	Transition(ctx context.Context, cmd TransitionCommand) (*model.ReturnRequest, error)

	// Customer
	Cancel(ctx context.Context, id, userID uuid.UUID) (*model.ReturnRequest, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.ReturnRequest, error)

	// Admin
	Approve(ctx context.Context, id, adminID uuid.UUID) (*model.ReturnRequest, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, req model.RejectReturnRequest) (*model.ReturnRequest, error)
	MarkPicked(ctx context.Context, id, adminID uuid.UUID, req model.PickReturnRequest) (*model.ReturnRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)
	History(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error)

	// RecordRetryFailure keeps a RefundFailed request in place and replaces
	// its failure reason after another declined attempt.
	RecordRetryFailure(ctx context.Context, id uuid.UUID, expectedVersion int, reason string) (*model.ReturnRequest, error)
}

// TransitionCommand: ExpectedVersion, when set, must match the stored
// version or the call fails with a concurrent modification.
type TransitionCommand struct {
	RequestID       uuid.UUID
	Actor           model.Actor
	Target          model.Status
	ExpectedVersion *int
	Details         model.TransitionDetails
}

// =====================================================
// COLLABORATORS
// =====================================================

// OrderDelivery answers eligibility questions about the original order
type OrderDelivery interface {
	IsReturnEligible(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]orderModel.OrderItem, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notificationModel.NotifyInput) (*notificationModel.Notification, error)
}

// EventPublisher receives committed lifecycle events (best effort)
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
