package model

import (
	"time"

	"github.com/google/uuid"
)

// Role of whoever drives a transition
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleSystem Role = "system"
)

// Actor performing a transition. UserID is nil for the system.
type Actor struct {
	Role   Role
	UserID uuid.UUID
}

func SystemActor() Actor { return Actor{Role: RoleSystem} }

// transitions maps from -> to -> the only role allowed to take that edge
var transitions = map[Status]map[Status]Role{
	StatusRequested: {
		StatusApproved:  RoleAdmin,
		StatusRejected:  RoleAdmin,
		StatusCancelled: RoleOwner,
	},
	StatusApproved: {
		StatusPicked: RoleAdmin,
	},
	StatusPicked: {
		StatusRefunded:     RoleSystem,
		StatusRefundFailed: RoleSystem,
	},
	StatusRefundFailed: {
		StatusRefunded: RoleSystem,
	},
}

// CheckTransition validates one edge for the given role
func CheckTransition(from, to Status, role Role) error {
	allowedRole, ok := transitions[from][to]
	if !ok || allowedRole != role {
		return &InvalidTransitionError{From: from, To: to, Role: role}
	}
	return nil
}

// AllowedTargets lists every status reachable from s in one step
func AllowedTargets(s Status) []Status {
	out := make([]Status, 0, len(transitions[s]))
	for _, to := range AllStatuses() {
		if _, ok := transitions[s][to]; ok {
			out = append(out, to)
		}
	}
	return out
}

// TransitionDetails carries the edge-specific fields
type TransitionDetails struct {
	PickupAgentID    *uuid.UUID
	ProviderRefundID string
	FailureReason    string
	Note             string
}

// Apply moves r to status "to" at time "at" and stamps the matching fields.
// It does not validate the edge; call CheckTransition first.
func (r *ReturnRequest) Apply(to Status, at time.Time, d TransitionDetails) {
	switch to {
	case StatusApproved:
		r.ApprovedAt = &at
		amount := r.ItemsTotal()
		r.RefundAmount = &amount
	case StatusRejected:
		r.RejectedAt = &at
		if d.Note != "" {
			note := d.Note
			r.RejectionReason = &note
		}
	case StatusCancelled:
		r.CancelledAt = &at
	case StatusPicked:
		r.PickedAt = &at
		r.PickupAgentID = d.PickupAgentID
	case StatusRefunded:
		r.RefundedAt = &at
		r.RefundFailureReason = nil
		if d.ProviderRefundID != "" {
			ref := d.ProviderRefundID
			r.ProviderRefundID = &ref
		}
	case StatusRefundFailed:
		reason := d.FailureReason
		r.RefundFailureReason = &reason
	}

	r.Status = to
	r.UpdatedAt = at
}
