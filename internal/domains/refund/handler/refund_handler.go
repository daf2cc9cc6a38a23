package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"returns-backend/internal/domains/refund/model"
	"returns-backend/internal/domains/refund/service"
	"returns-backend/internal/shared/response"
)

// ================================================
// REFUND HANDLER
// ================================================

// Refunds are admin-only; customers see the result through notifications
// and the cancelled-order listing.
type RefundHandler struct {
	orchestrator service.Orchestrator
}

func NewRefundHandler(orchestrator service.Orchestrator) *RefundHandler {
	return &RefundHandler{orchestrator: orchestrator}
}

// RefundReturn godoc
// POST /api/v1/admin/returns/:id/refund
func (h *RefundHandler) RefundReturn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid return request ID")
		return
	}

	outcome, err := h.orchestrator.InitiateRefund(c.Request.Context(), id, model.KindReturnRefund)
	h.respond(c, outcome, err)
}

// RefundCancelledOrder godoc
// POST /api/v1/admin/orders/:id/refund
func (h *RefundHandler) RefundCancelledOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	outcome, err := h.orchestrator.InitiateRefund(c.Request.Context(), id, model.KindCancelledOrderRefund)
	h.respond(c, outcome, err)
}

// respond: an already refunded entity is a success; a recorded transport
// failure still returns the outcome alongside the error.
func (h *RefundHandler) respond(c *gin.Context, outcome *model.RefundOutcome, err error) {
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, outcome)
	case errors.Is(err, model.ErrAlreadyRefunded) && outcome != nil:
		response.Success(c, http.StatusOK, outcome)
	case outcome != nil:
		var perr *model.ProviderError
		code := model.ErrCodeProvider
		if errors.As(err, &perr) {
			code = perr.ErrorCode()
		}
		response.ErrorWithDetails(c, http.StatusBadGateway, code, err.Error(), outcome)
	default:
		response.FromError(c, err)
	}
}
