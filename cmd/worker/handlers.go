package main

import (
	"github.com/hibiken/asynq"

	notificationJob "returns-backend/internal/domains/notification/job"
	refundJob "returns-backend/internal/domains/refund/job"
	"returns-backend/internal/shared"
	"returns-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Notification handlers
	sendEmail *notificationJob.SendEmailHandler
	cleanup   *notificationJob.CleanupOldNotificationsHandler

	// Refund maintenance
	releaseStale *refundJob.ReleaseStaleOrderRefundsHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container, cfg *Config) *HandlerRegistry {
	return &HandlerRegistry{
		sendEmail:    notificationJob.NewSendEmailHandler(c.Dispatcher),
		cleanup:      notificationJob.NewCleanupOldNotificationsHandler(c.Dispatcher, cfg.App.Notification),
		releaseStale: refundJob.NewReleaseStaleOrderRefundsHandler(c.Orchestrator, cfg.App.Refund.StaleAfter),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeSendNotificationEmail, h.sendEmail.ProcessTask)
	mux.HandleFunc(shared.TypeCleanupOldNotifications, h.cleanup.ProcessTask)
	mux.HandleFunc(shared.TypeReleaseStaleOrderRefunds, h.releaseStale.ProcessTask)
}
