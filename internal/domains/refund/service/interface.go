package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	notificationModel "returns-backend/internal/domains/notification/model"
	"returns-backend/internal/domains/refund/model"
)

// =====================================================
// REFUND ORCHESTRATOR
// =====================================================
type Orchestrator interface {
	// InitiateRefund calls the payment provider once for a picked return
	// request or a cancelled order and records the outcome.
	//
	// An entity that is already refunded yields ErrAlreadyRefunded together
	// with a populated outcome. Provider transport failures and timeouts
	// return *model.ProviderError.
	InitiateRefund(ctx context.Context, id uuid.UUID, kind model.Kind) (*model.RefundOutcome, error)

	// ReleaseStale moves cancelled-order refunds stuck in Initiated for
	// longer than staleAfter back to Failed.
	ReleaseStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notificationModel.NotifyInput) (*notificationModel.Notification, error)
}
