package job

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/domains/notification/service"
	"returns-backend/internal/shared"
	"returns-backend/internal/shared/utils"
)

// ================================================
// SEND NOTIFICATION EMAIL JOB HANDLER
// ================================================

type SendEmailHandler struct {
	dispatcher service.Dispatcher
}

func NewSendEmailHandler(dispatcher service.Dispatcher) *SendEmailHandler {
	return &SendEmailHandler{dispatcher: dispatcher}
}

func (h *SendEmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.NotificationEmailPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.NotificationID)
	if err != nil {
		return fmt.Errorf("invalid notification id %q: %w", payload.NotificationID, asynq.SkipRetry)
	}

	if err := h.dispatcher.SendEmail(ctx, id); err != nil {
		log.Error().Err(err).Str("notification_id", payload.NotificationID).Msg("Failed to send notification email")
		return err
	}

	log.Info().Str("notification_id", payload.NotificationID).Msg("Notification email sent")
	return nil
}
