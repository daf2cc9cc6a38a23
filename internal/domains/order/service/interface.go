package service

import (
	"context"

	"github.com/google/uuid"

	"returns-backend/internal/domains/order/model"
)

// =====================================================
// ORDER DELIVERY (consumed by the returns store)
// =====================================================
type DeliveryService interface {
	// IsReturnEligible is false for missing orders, orders not owned by
	// userID, undelivered orders and orders past the return window.
	IsReturnEligible(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
}

// =====================================================
// CANCELLED ORDERS
// =====================================================
type CancelledOrderService interface {
	// RecordCancellation snapshots a cancelled order so it can be refunded.
	// Recording the same order twice is a no-op.
	RecordCancellation(ctx context.Context, orderID uuid.UUID) (*model.RefundableOrder, error)

	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*model.RefundableOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID, req model.ListCancelledOrdersRequest) (*model.ListCancelledOrdersResponse, error)

	// Admin
	ListAll(ctx context.Context, req model.ListCancelledOrdersRequest) (*model.ListCancelledOrdersResponse, error)
}
