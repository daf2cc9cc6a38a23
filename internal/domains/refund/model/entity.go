package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REFUND KIND
// =====================================================
type Kind string

const (
	KindReturnRefund         Kind = "return_refund"
	KindCancelledOrderRefund Kind = "cancelled_order_refund"
)

func (k Kind) Valid() bool {
	return k == KindReturnRefund || k == KindCancelledOrderRefund
}

// =====================================================
// PAYMENT COLLABORATOR CONTRACT
// =====================================================

// RefundCommand is one provider call. IdempotencyKey is stable for a given
// entity version so a repeated call with the same key is deduplicated by
// the provider.
type RefundCommand struct {
	ReferenceID    string
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
}

// RefundResult: Success=false with a Reason is a provider decline, not an error
type RefundResult struct {
	Success          bool
	ProviderRefundID string
	Reason           string
}

// =====================================================
// OUTCOME
// =====================================================
type RefundOutcome struct {
	Kind             Kind            `json:"kind"`
	ReferenceID      uuid.UUID       `json:"reference_id"`
	Status           string          `json:"status"`
	Success          bool            `json:"success"`
	AlreadyRefunded  bool            `json:"already_refunded"`
	Amount           decimal.Decimal `json:"amount"`
	ProviderRefundID string          `json:"provider_refund_id,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
}
