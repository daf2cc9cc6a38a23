package shared

import "time"

// Queues
const (
	QueueNotification = "notification"
	QueueRefund       = "refund"
	QueueDefault      = "default"
)

// Task types
const (
	TypeSendNotificationEmail    = "notification:send_email"
	TypeCleanupOldNotifications  = "notification:cleanup_old"
	TypeReleaseStaleOrderRefunds = "refund:release_stale_order_refunds"
)

// NotificationEmailPayload asks the worker to mail a persisted notification
type NotificationEmailPayload struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
}

type CleanupOldNotificationsPayload struct {
	OlderThanDays int `json:"olderThanDays"`
}

type ReleaseStaleOrderRefundsPayload struct {
	StaleAfter time.Duration `json:"staleAfter"`
}
