package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"returns-backend/internal/config"
	"returns-backend/internal/shared"
	"returns-backend/internal/shared/utils"
	"returns-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
	cfg       *config.Config
}

func NewScheduler(redisOpt asynq.RedisClientOpt, cfg *config.Config) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: cfg.Jobs,
		cfg:       cfg,
	}
}

func (s *Scheduler) RegisterJobs() error {
	if err := s.registerCleanupOldNotificationsJob(); err != nil {
		return err
	}

	if err := s.registerReleaseStaleOrderRefundsJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Cleanup Old Read Notifications (daily at 3 AM by default)
// ================================================
func (s *Scheduler) registerCleanupOldNotificationsJob() error {
	task, err := utils.NewTask(shared.TypeCleanupOldNotifications, shared.CleanupOldNotificationsPayload{
		OlderThanDays: s.cfg.Notification.RetentionDays,
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.jobConfig.CleanupNotificationsCron,
		task,
		asynq.Queue(shared.QueueNotification),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register CleanupOldNotifications job", err)
		return err
	}

	logger.Info("Registered CleanupOldNotifications", map[string]interface{}{
		"cron":           s.jobConfig.CleanupNotificationsCron,
		"retention_days": s.cfg.Notification.RetentionDays,
	})
	return nil
}

// ================================================
// JOB 2: Release Stale Order Refund Claims (every 10 minutes by default)
// ================================================
// A crash between claiming a cancelled-order refund and recording its
// result leaves the order Initiated; this job returns it to Failed so it
// can be retried.
func (s *Scheduler) registerReleaseStaleOrderRefundsJob() error {
	task, err := utils.NewTask(shared.TypeReleaseStaleOrderRefunds, shared.ReleaseStaleOrderRefundsPayload{
		StaleAfter: s.cfg.Refund.StaleAfter,
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.jobConfig.ReleaseStaleRefundsCron,
		task,
		asynq.Queue(shared.QueueRefund),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ReleaseStaleOrderRefunds job", err)
		return err
	}

	logger.Info("Registered ReleaseStaleOrderRefunds", map[string]interface{}{
		"cron":        s.jobConfig.ReleaseStaleRefundsCron,
		"stale_after": s.cfg.Refund.StaleAfter.String(),
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
