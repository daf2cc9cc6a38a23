package gateway

import (
	"context"

	"github.com/google/uuid"

	"returns-backend/internal/domains/refund/model"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// PaymentGateway refunds a captured payment. A provider decline is reported
// as RefundResult{Success: false}; error is reserved for transport failures.
type PaymentGateway interface {
	Refund(ctx context.Context, cmd model.RefundCommand) (*model.RefundResult, error)
}

// PaymentIntentLookup resolves the provider payment of an order
type PaymentIntentLookup interface {
	GetPaymentIntentID(ctx context.Context, orderID uuid.UUID) (string, error)
}
