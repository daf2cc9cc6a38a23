package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"returns-backend/internal/domains/refund/service"
	"returns-backend/internal/shared"
	"returns-backend/internal/shared/utils"
	"returns-backend/pkg/logger"
)

// ================================================
// RELEASE STALE ORDER REFUNDS JOB HANDLER
// ================================================

type ReleaseStaleOrderRefundsHandler struct {
	orchestrator service.Orchestrator
	staleAfter   time.Duration
}

func NewReleaseStaleOrderRefundsHandler(orchestrator service.Orchestrator, staleAfter time.Duration) *ReleaseStaleOrderRefundsHandler {
	return &ReleaseStaleOrderRefundsHandler{
		orchestrator: orchestrator,
		staleAfter:   staleAfter,
	}
}

func (h *ReleaseStaleOrderRefundsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ReleaseStaleOrderRefundsPayload
	if len(t.Payload()) > 0 {
		if err := utils.UnmarshalTask(t, &payload); err != nil {
			logger.Error("Failed to unmarshal release_stale payload, using configured threshold", err)
		}
	}

	staleAfter := payload.StaleAfter
	if staleAfter <= 0 {
		staleAfter = h.staleAfter
	}

	released, err := h.orchestrator.ReleaseStale(ctx, staleAfter)
	if err != nil {
		return fmt.Errorf("release stale order refunds: %w", err)
	}

	if released > 0 {
		logger.Info("Released stale order refund claims", map[string]interface{}{
			"stale_after":    staleAfter.String(),
			"released_count": released,
		})
	}
	return nil
}
