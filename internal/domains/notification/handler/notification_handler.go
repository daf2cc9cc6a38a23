package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"returns-backend/internal/domains/notification/model"
	"returns-backend/internal/domains/notification/service"
	"returns-backend/internal/shared/middleware"
	"returns-backend/internal/shared/response"
	"returns-backend/internal/shared/utils"
)

// ================================================
// NOTIFICATION HANDLER
// ================================================

type NotificationHandler struct {
	dispatcher service.Dispatcher
}

func NewNotificationHandler(dispatcher service.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// ListNotifications godoc
// GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	result, err := h.dispatcher.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// MarkAllRead godoc
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	updated, err := h.dispatcher.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated_count": updated})
}

// DeleteNotification godoc
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.dispatcher.DeleteOne(c.Request.Context(), id, userID); err != nil {
		response.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteNotifications godoc
// DELETE /api/v1/notifications  body: {"ids": [...]} (optional)
func (h *NotificationHandler) DeleteNotifications(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.DeleteNotificationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, model.ErrCodeInvalidNotification, "Validation failed", err)
		return
	}

	ids, err := utils.ParseUUIDs(req.IDs)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	deleted, err := h.dispatcher.DeleteMany(c.Request.Context(), userID, ids)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted_count": deleted})
}
