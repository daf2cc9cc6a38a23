package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/order/model"
)

// RefundableFilter narrows cancelled-order listings. Nil fields match all.
// AsOf excludes orders recorded after the snapshot instant.
type RefundableFilter struct {
	UserID       *uuid.UUID
	RefundStatus *model.RefundStatus
	AsOf         *time.Time
}

// =====================================================
// ORDER REPOSITORY INTERFACE
// =====================================================
type OrderRepository interface {
	// Orders are written upstream; this service only reads them
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	GetPaymentIntentID(ctx context.Context, orderID uuid.UUID) (string, error)

	// Refundable (cancelled) orders
	CreateRefundableOrder(ctx context.Context, order *model.RefundableOrder) error
	GetRefundableOrder(ctx context.Context, orderID uuid.UUID) (*model.RefundableOrder, error)
	// UpdateRefundState writes refund fields only if the stored version
	// equals expectedVersion; on success order.Version is incremented.
	UpdateRefundState(ctx context.Context, order *model.RefundableOrder, expectedVersion int) error
	ListRefundableOrders(ctx context.Context, filter RefundableFilter, offset, limit int) ([]model.RefundableOrder, error)
	CountRefundableOrders(ctx context.Context, filter RefundableFilter) (int, error)
	ListStaleInitiated(ctx context.Context, updatedBefore time.Time) ([]model.RefundableOrder, error)
}
