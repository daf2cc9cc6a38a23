package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// RETURN REQUEST STATUS
// =====================================================
type Status string

const (
	StatusRequested    Status = "requested"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusCancelled    Status = "cancelled"
	StatusPicked       Status = "picked"
	StatusRefunded     Status = "refunded"
	StatusRefundFailed Status = "refund_failed"
)

// AllStatuses in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusRequested,
		StatusApproved,
		StatusRejected,
		StatusCancelled,
		StatusPicked,
		StatusRefunded,
		StatusRefundFailed,
	}
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves s
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Open statuses block a second return request on the same order
func (s Status) IsOpen() bool {
	return s.Valid() && !s.IsTerminal()
}

// Reason codes accepted on create
const (
	ReasonDamaged        = "damaged"
	ReasonWrongItem      = "wrong_item"
	ReasonNotAsDescribed = "not_as_described"
	ReasonNoLongerNeeded = "no_longer_needed"
	ReasonOther          = "other"
)

// =====================================================
// RETURN REQUEST ENTITY
// =====================================================

// ReturnItem is a snapshot of an order line taken when the request is created
type ReturnItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i ReturnItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PickupAddress is a value copy, not a reference to the address book
type PickupAddress struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

type ReturnRequest struct {
	ID            uuid.UUID     `json:"id"`
	OrderID       uuid.UUID     `json:"order_id"`
	UserID        uuid.UUID     `json:"user_id"`
	Items         []ReturnItem  `json:"items"`
	Reason        string        `json:"reason"`
	Comment       string        `json:"comment"`
	ImageKey      *string       `json:"image_key,omitempty"`
	PickupAddress PickupAddress `json:"pickup_address"`

	// RefundAmount is fixed on approval and never recomputed
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	Status       Status           `json:"status"`

	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	PickedAt    *time.Time `json:"picked_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	RejectionReason     *string    `json:"rejection_reason,omitempty"`
	PickupAgentID       *uuid.UUID `json:"pickup_agent_id,omitempty"`
	RefundFailureReason *string    `json:"refund_failure_reason,omitempty"`
	ProviderRefundID    *string    `json:"provider_refund_id,omitempty"`

	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemsTotal sums the snapshotted lines
func (r *ReturnRequest) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Clone returns a copy safe to mutate without touching r
func (r *ReturnRequest) Clone() *ReturnRequest {
	c := *r
	c.Items = append([]ReturnItem(nil), r.Items...)
	return &c
}

// =====================================================
// STATUS HISTORY
// =====================================================
type StatusHistory struct {
	ID              uuid.UUID  `json:"id"`
	ReturnRequestID uuid.UUID  `json:"return_request_id"`
	FromStatus      Status     `json:"from_status"`
	ToStatus        Status     `json:"to_status"`
	ActorRole       Role       `json:"actor_role"`
	ActorID         *uuid.UUID `json:"actor_id,omitempty"`
	Note            *string    `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// LifecycleEvent is published after every committed transition
type LifecycleEvent struct {
	EventID         string    `json:"event_id"`
	ReturnRequestID string    `json:"return_request_id"`
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	From            Status    `json:"from"`
	To              Status    `json:"to"`
	ActorRole       Role      `json:"actor_role"`
	Version         int       `json:"version"`
	OccurredAt      time.Time `json:"occurred_at"`
}
