package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER STATUS CONSTANTS
// =====================================================
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipping   = "shipping"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

// =====================================================
// ENTITY: Order (read model owned by the order service upstream)
// =====================================================
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"` // nil for guest checkout
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsOwnedBy is false for guest orders
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// IsWithinReturnWindow reports whether a delivered order can still be returned
func (o *Order) IsWithinReturnWindow(now time.Time, window time.Duration) bool {
	if o.Status != OrderStatusDelivered || o.DeliveredAt == nil {
		return false
	}
	return !now.After(o.DeliveredAt.Add(window))
}

// OrderItem is an order line as priced at checkout
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// =====================================================
// ENTITY: RefundableOrder (cancelled order awaiting refund)
// =====================================================
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusInitiated RefundStatus = "initiated"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

func (s RefundStatus) Valid() bool {
	switch s {
	case RefundStatusNone, RefundStatusInitiated, RefundStatusSucceeded, RefundStatusFailed:
		return true
	}
	return false
}

// CanInitiate: only None and Failed may start a refund
func (s RefundStatus) CanInitiate() bool {
	return s == RefundStatusNone || s == RefundStatusFailed
}

type RefundableOrder struct {
	OrderID             uuid.UUID    `json:"order_id"`
	UserID              *uuid.UUID   `json:"user_id,omitempty"`
	Items               []OrderItem  `json:"items"`
	RefundStatus        RefundStatus `json:"refund_status"`
	RefundReference     *string      `json:"refund_reference,omitempty"`
	RefundFailureReason *string      `json:"refund_failure_reason,omitempty"`
	CancelledAt         time.Time    `json:"cancelled_at"`
	RefundUpdatedAt     *time.Time   `json:"refund_updated_at,omitempty"`
	// RefundAttempts counts refunds the provider definitively failed; it
	// scopes the provider idempotency key, so it only moves on a recorded
	// failure and never on an interrupted call.
	RefundAttempts int       `json:"refund_attempts"`
	CreatedAt      time.Time `json:"created_at"`
	Version        int       `json:"version"`
}

// Amount is the refundable total of the item snapshot
func (o *RefundableOrder) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (o *RefundableOrder) Clone() *RefundableOrder {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}
