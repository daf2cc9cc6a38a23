package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/order/service"
	"returns-backend/internal/shared/middleware"
	"returns-backend/internal/shared/response"
)

// =====================================================
// CANCELLED ORDER HANDLER
// =====================================================
type OrderHandler struct {
	cancelled service.CancelledOrderService
}

func NewOrderHandler(cancelled service.CancelledOrderService) *OrderHandler {
	return &OrderHandler{
		cancelled: cancelled,
	}
}

// =====================================================
// LIST MY CANCELLED ORDERS
// =====================================================

// ListMyCancelledOrders godoc
// @Summary List the caller's cancelled orders
// @Tags Orders
// @Produce json
// @Param refund_status query string false "none, initiated, succeeded, failed"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size"
// @Param as_of query string false "Snapshot instant from page 1 (RFC3339)"
// @Success 200 {object} response.Response
// @Router /v1/orders/cancelled [get]
func (h *OrderHandler) ListMyCancelledOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	req, ok := bindListRequest(c)
	if !ok {
		return
	}

	page, err := h.cancelled.ListForUser(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

// =====================================================
// GET MY CANCELLED ORDER
// =====================================================

// GetMyCancelledOrder godoc
// @Summary Get one of the caller's cancelled orders with its refund state
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID (UUID)"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /v1/orders/cancelled/{id} [get]
func (h *OrderHandler) GetMyCancelledOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Order ID must be a valid UUID")
		return
	}

	order, err := h.cancelled.GetForUser(c.Request.Context(), orderID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// =====================================================
// ADMIN
// =====================================================

// ListAllCancelledOrders godoc
// @Summary List every cancelled order (admin)
// @Tags Admin Orders
// @Produce json
// @Router /v1/admin/orders/cancelled [get]
func (h *OrderHandler) ListAllCancelledOrders(c *gin.Context) {
	req, ok := bindListRequest(c)
	if !ok {
		return
	}

	page, err := h.cancelled.ListAll(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

// RecordCancellation godoc
// @Summary Snapshot a cancelled order so it can be refunded (admin)
// @Tags Admin Orders
// @Produce json
// @Param id path string true "Order ID (UUID)"
// @Success 201 {object} response.Response
// @Router /v1/admin/orders/{id}/cancellation [post]
func (h *OrderHandler) RecordCancellation(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Order ID must be a valid UUID")
		return
	}

	order, err := h.cancelled.RecordCancellation(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, order)
}

// =====================================================
// HELPERS
// =====================================================

// bindListRequest defaults a missing page to 1
func bindListRequest(c *gin.Context) (model.ListCancelledOrdersRequest, bool) {
	req := model.ListCancelledOrdersRequest{Page: 1}
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return req, false
	}
	return req, true
}
