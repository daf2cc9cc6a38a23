package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"returns-backend/internal/config"
	"returns-backend/internal/domains/notification/service"
	"returns-backend/internal/shared"
	"returns-backend/internal/shared/utils"
	"returns-backend/pkg/logger"
)

// ================================================
// CLEANUP OLD READ NOTIFICATIONS JOB HANDLER
// ================================================

type CleanupOldNotificationsHandler struct {
	dispatcher service.Dispatcher
	cfg        config.NotificationConfig
}

func NewCleanupOldNotificationsHandler(dispatcher service.Dispatcher, cfg config.NotificationConfig) *CleanupOldNotificationsHandler {
	return &CleanupOldNotificationsHandler{
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Payload is optional; the scheduler sends none and the configured
// retention applies.
func (h *CleanupOldNotificationsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.CleanupOldNotificationsPayload
	if len(t.Payload()) > 0 {
		if err := utils.UnmarshalTask(t, &payload); err != nil {
			logger.Error("Failed to unmarshal cleanup_old payload, using configured retention", err)
		}
	}

	days := payload.OlderThanDays
	if days <= 0 {
		days = h.cfg.RetentionDays
	}

	logger.Info("Starting CleanupOldNotifications job", map[string]interface{}{
		"days": days,
	})

	deleted, err := h.dispatcher.CleanupOldRead(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup old read notifications: %w", err)
	}

	logger.Info("Completed CleanupOldNotifications job", map[string]interface{}{
		"days":          days,
		"deleted_count": deleted,
	})

	return nil
}
