package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/domains/notification/model"
	"returns-backend/internal/domains/notification/repository"
	"returns-backend/internal/infrastructure/email"
	"returns-backend/internal/infrastructure/metrics"
	"returns-backend/internal/infrastructure/realtime"
	"returns-backend/internal/shared"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

const pushTimeout = 5 * time.Second

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ================================================
// DISPATCHER IMPLEMENTATION
// ================================================

type dispatcher struct {
	repo    repository.NotificationRepository
	hub     *realtime.Hub
	pusher  Pusher
	pool    *ants.Pool
	queue   TaskEnqueuer
	mailer  email.EmailService
	clock   utils.Clock
	metrics *metrics.Metrics
}

// Options wires the optional collaborators. Pusher defaults to Hub; a nil
// Queue disables email copies.
type Options struct {
	Hub      *realtime.Hub
	Pusher   Pusher
	PoolSize int
	Queue    TaskEnqueuer
	Mailer   email.EmailService
	Clock    utils.Clock
	Metrics  *metrics.Metrics
}

func NewDispatcher(repo repository.NotificationRepository, opts Options) (Dispatcher, error) {
	if opts.Hub == nil {
		opts.Hub = realtime.NewHub(realtime.DefaultBuffer)
	}
	if opts.Pusher == nil {
		opts.Pusher = opts.Hub
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 256
	}
	if opts.Clock == nil {
		opts.Clock = utils.NewMonotonicClock(nil)
	}

	// Non-blocking: when every worker is busy the push is dropped
	pool, err := ants.NewPool(opts.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create push pool: %w", err)
	}

	return &dispatcher{
		repo:    repo,
		hub:     opts.Hub,
		pusher:  opts.Pusher,
		pool:    pool,
		queue:   opts.Queue,
		mailer:  opts.Mailer,
		clock:   opts.Clock,
		metrics: opts.Metrics,
	}, nil
}

// ================================================
// NOTIFY
// ================================================

func (d *dispatcher) Notify(ctx context.Context, in model.NotifyInput) (*model.Notification, error) {
	if in.UserID == uuid.Nil {
		return nil, model.ErrMissingRecipient
	}
	if in.Title == "" {
		return nil, model.ErrMissingTitle
	}
	if in.Type == "" {
		in.Type = model.TypeSystem
	}

	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		CreatedAt: d.clock.Now(),
	}
	if len(in.Payload) > 0 {
		n.Data = model.JSONB(in.Payload)
	}

	if err := d.repo.Create(ctx, n); err != nil {
		d.metrics.ObserveNotification("persist", "error")
		return nil, model.NewNotificationError(model.ErrCodePersistFailed, "failed to persist notification", err)
	}
	d.metrics.ObserveNotification("persist", "ok")

	d.push(n)
	d.enqueueEmail(ctx, n)

	return n, nil
}

func (d *dispatcher) push(n *model.Notification) {
	snapshot := *n
	err := d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		if err := d.pusher.Push(ctx, snapshot.UserID, &snapshot); err != nil {
			d.metrics.ObserveNotification("push", "error")
			log.Warn().Err(err).
				Str("notification_id", snapshot.ID.String()).
				Msg("Push delivery failed")
			return
		}
		d.metrics.ObserveNotification("push", "ok")
	})
	if err != nil {
		d.metrics.ObserveNotification("push", "dropped")
		log.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Msg("Push dropped")
	}
}

func (d *dispatcher) enqueueEmail(ctx context.Context, n *model.Notification) {
	if d.queue == nil {
		return
	}

	task, err := utils.NewTask(shared.TypeSendNotificationEmail, shared.NotificationEmailPayload{
		NotificationID: n.ID.String(),
		UserID:         n.UserID.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build email task")
		return
	}

	_, err = d.queue.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueNotification),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		d.metrics.ObserveNotification("email_enqueue", "error")
		log.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Msg("Failed to enqueue notification email")
		return
	}
	d.metrics.ObserveNotification("email_enqueue", "ok")
}

// ================================================
// USER OPERATIONS
// ================================================

func (d *dispatcher) ListForUser(ctx context.Context, userID uuid.UUID) (*model.ListNotificationsResponse, error) {
	notifications, err := d.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	return &model.ListNotificationsResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (d *dispatcher) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return d.repo.MarkAllRead(ctx, userID, d.clock.Now())
}

func (d *dispatcher) DeleteOne(ctx context.Context, id, userID uuid.UUID) error {
	return d.repo.DeleteOne(ctx, id, userID)
}

func (d *dispatcher) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	deleted, err := d.repo.DeleteMany(ctx, userID, ids)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("requested", len(ids)).
		Int64("deleted", deleted).
		Msg("Notifications deleted")
	return deleted, nil
}

func (d *dispatcher) Subscribe(userID uuid.UUID) *realtime.Subscription {
	return d.hub.Subscribe(userID)
}

func (d *dispatcher) Unsubscribe(sub *realtime.Subscription) {
	d.hub.Unsubscribe(sub)
}

// ================================================
// JOBS
// ================================================

// SendEmail mails one notification. A notification deleted before the job
// runs, or an owner without an email address, is skipped.
func (d *dispatcher) SendEmail(ctx context.Context, notificationID uuid.UUID) error {
	if d.mailer == nil {
		return nil
	}

	n, err := d.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Info().Str("notification_id", notificationID.String()).Msg("Notification gone, email skipped")
			return nil
		}
		return err
	}
	if n.EmailSentAt != nil {
		return nil
	}

	rec, err := d.repo.GetRecipient(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Info().Str("user_id", n.UserID.String()).Msg("No email address, email skipped")
			return nil
		}
		return err
	}

	err = d.mailer.Send(ctx, email.Message{
		To:       rec.Email,
		Subject:  n.Title,
		TextBody: n.Message,
		HTMLBody: fmt.Sprintf("<p>%s</p><p>%s</p>", html.EscapeString(greeting(rec)), html.EscapeString(n.Message)),
	})
	if err != nil {
		d.metrics.ObserveNotification("email", "error")
		return fmt.Errorf("send notification email: %w", err)
	}
	d.metrics.ObserveNotification("email", "ok")

	return d.repo.MarkEmailed(ctx, n.ID, d.clock.Now())
}

func (d *dispatcher) CleanupOldRead(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %d days", olderThanDays)
	}
	before := d.clock.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	return d.repo.DeleteReadOlderThan(ctx, before)
}

func (d *dispatcher) Close() {
	d.pool.Release()
}

func greeting(rec *model.Recipient) string {
	if rec.FullName == "" {
		return "Hello,"
	}
	return "Hello " + rec.FullName + ","
}
