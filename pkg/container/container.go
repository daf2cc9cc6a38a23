package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/config"
	"returns-backend/internal/infrastructure/cache"
	"returns-backend/internal/infrastructure/database"
	"returns-backend/internal/infrastructure/email"
	"returns-backend/internal/infrastructure/events"
	"returns-backend/internal/infrastructure/metrics"
	"returns-backend/internal/infrastructure/realtime"
	"returns-backend/internal/infrastructure/storage"
	"returns-backend/internal/shared/utils"
	"returns-backend/pkg/jwt"

	notificationHandler "returns-backend/internal/domains/notification/handler"
	notificationRepo "returns-backend/internal/domains/notification/repository"
	notificationService "returns-backend/internal/domains/notification/service"
	orderHandler "returns-backend/internal/domains/order/handler"
	orderRepo "returns-backend/internal/domains/order/repository"
	orderService "returns-backend/internal/domains/order/service"
	refundGateway "returns-backend/internal/domains/refund/gateway"
	mockGateway "returns-backend/internal/domains/refund/gateway/mock"
	stripeGateway "returns-backend/internal/domains/refund/gateway/stripe"
	refundHandler "returns-backend/internal/domains/refund/handler"
	refundService "returns-backend/internal/domains/refund/service"
	returnHandler "returns-backend/internal/domains/returns/handler"
	returnRepo "returns-backend/internal/domains/returns/repository"
	returnService "returns-backend/internal/domains/returns/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph, shared by the API and
// the worker binaries.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB // nil with STORAGE_DRIVER=memory
	Redis       *cache.RedisClient   // nil when Redis is unreachable in memory mode
	JWTManager  *jwt.Manager
	Metrics     *metrics.Metrics
	Clock       utils.Clock
	Hub         *realtime.Hub
	Broker      *realtime.RedisBroker
	Events      *events.Publisher
	AsynqClient *asynq.Client
	Mailer      email.EmailService
	ObjectStore storage.ObjectStore
	Gateway     refundGateway.PaymentGateway

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	OrderRepo        orderRepo.OrderRepository
	ReturnRepo       returnRepo.ReturnRepository
	NotificationRepo notificationRepo.NotificationRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	DeliveryService       orderService.DeliveryService
	CancelledOrderService orderService.CancelledOrderService
	Dispatcher            notificationService.Dispatcher
	ReturnService         returnService.ReturnService
	QueryService          returnService.QueryService
	ExportService         returnService.ExportService
	ImageService          returnService.ImageService
	Orchestrator          refundService.Orchestrator

	// ========================================
	// HANDLER LAYER
	// ========================================
	OrderHandler        *orderHandler.OrderHandler
	ReturnHandler       *returnHandler.ReturnHandler
	RefundHandler       *refundHandler.RefundHandler
	NotificationHandler *notificationHandler.NotificationHandler
	WebSocketHandler    *notificationHandler.WebSocketHandler

	stopBackground context.CancelFunc
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	log.Info().Msg("Initializing DI container")

	c := &Container{}

	// ========================================
	// STEP 1: CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	c.Clock = utils.NewMonotonicClock(nil)
	c.Metrics = metrics.New("returns-api")
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	bgCtx, stop := context.WithCancel(context.Background())
	c.stopBackground = stop

	// ========================================
	// STEP 2: INFRASTRUCTURE
	// ========================================
	if err := c.initStorage(bgCtx); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initRedis(bgCtx); err != nil {
		c.Cleanup()
		return nil, err
	}
	c.initObjectStore(bgCtx)

	c.Events = events.NewPublisher(cfg.Kafka)
	c.Mailer = email.NewEmailService(cfg.Email)

	// ========================================
	// STEP 3: SERVICES
	// ========================================
	if err := c.initServices(); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 4: HANDLERS
	// ========================================
	c.OrderHandler = orderHandler.NewOrderHandler(c.CancelledOrderService)
	c.ReturnHandler = returnHandler.NewReturnHandler(c.ReturnService, c.QueryService, c.ImageService, c.ExportService)
	c.RefundHandler = refundHandler.NewRefundHandler(c.Orchestrator)
	c.NotificationHandler = notificationHandler.NewNotificationHandler(c.Dispatcher)
	c.WebSocketHandler = notificationHandler.NewWebSocketHandler(c.Dispatcher, cfg.App.CORSOrigins)

	log.Info().
		Str("env", cfg.App.Environment).
		Str("storage", cfg.App.StorageDriver).
		Msg("DI container initialized")
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	if c.Config.App.StorageDriver == "memory" {
		log.Warn().Msg("Using in-memory repositories, data is lost on restart")
		c.OrderRepo = orderRepo.NewMemoryOrderRepository()
		c.ReturnRepo = returnRepo.NewMemoryReturnRepository()
		c.NotificationRepo = notificationRepo.NewMemoryNotificationRepository()
		return nil
	}

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Connect(connectCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	go db.MonitorPoolHealth(ctx, 30*time.Second, c.Metrics)

	c.OrderRepo = orderRepo.NewPostgresOrderRepository(db.Pool)
	c.ReturnRepo = returnRepo.NewPostgresReturnRepository(db.Pool)
	c.NotificationRepo = notificationRepo.NewNotificationRepository(db.Pool)
	return nil
}

// initRedis: Redis is required with Postgres storage. In memory mode the
// service runs without it: pushes stay in-process and no emails are queued.
func (c *Container) initRedis(ctx context.Context) error {
	client := cache.NewRedisClient(c.Config.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Connect(pingCtx); err != nil {
		_ = client.Close()
		if c.Config.App.StorageDriver == "memory" {
			log.Warn().Err(err).Msg("Redis unavailable, running without queue and cross-instance push")
			return nil
		}
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	c.Redis = client
	c.AsynqClient = asynq.NewClient(client.AsynqOpt())
	return nil
}

// initObjectStore: proof image upload is disabled when MinIO is unreachable
func (c *Container) initObjectStore(ctx context.Context) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := storage.NewMinIOStorage(connectCtx, c.Config.MinIO)
	if err != nil {
		log.Warn().Err(err).Msg("MinIO unavailable, proof image upload disabled")
		return
	}
	c.ObjectStore = store
}

func (c *Container) initServices() error {
	cfg := c.Config

	// Notifications: local hub, fanned out across instances through Redis
	c.Hub = realtime.NewHub(realtime.DefaultBuffer)
	var pusher notificationService.Pusher = c.Hub
	if c.Redis != nil {
		c.Broker = realtime.NewRedisBroker(c.Redis.Client, c.Hub, realtime.DefaultChannel)
		pusher = c.Broker
	}

	opts := notificationService.Options{
		Hub:      c.Hub,
		Pusher:   pusher,
		PoolSize: cfg.Notification.PushPoolSize,
		Mailer:   c.Mailer,
		Clock:    c.Clock,
		Metrics:  c.Metrics,
	}
	if c.AsynqClient != nil {
		opts.Queue = c.AsynqClient
	}

	dispatcher, err := notificationService.NewDispatcher(c.NotificationRepo, opts)
	if err != nil {
		return fmt.Errorf("failed to create notification dispatcher: %w", err)
	}
	c.Dispatcher = dispatcher

	// Orders
	c.DeliveryService = orderService.NewDeliveryService(c.OrderRepo, c.Clock, cfg.Returns.WindowDays)
	c.CancelledOrderService = orderService.NewCancelledOrderService(c.OrderRepo, c.Clock, cfg.Returns.DefaultPageSize, cfg.Returns.MaxPageSize)

	// Returns
	var publisher returnService.EventPublisher
	if c.Events != nil {
		publisher = c.Events
	}
	c.ReturnService = returnService.NewReturnService(c.ReturnRepo, c.DeliveryService, c.Dispatcher, publisher, c.Clock, c.Metrics)
	c.QueryService = returnService.NewQueryService(c.ReturnRepo, c.Clock, cfg.Returns.DefaultPageSize, cfg.Returns.MaxPageSize)
	c.ExportService = returnService.NewExportService(c.ReturnRepo, c.Clock)
	c.ImageService = returnService.NewImageService(c.ObjectStore, storage.NewImageProcessor())

	// Refunds
	if cfg.Stripe.SecretKey != "" {
		c.Gateway = stripeGateway.NewGateway(cfg.Stripe.SecretKey, c.OrderRepo)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, refunds use the mock gateway")
		c.Gateway = mockGateway.NewGateway()
	}
	c.Orchestrator = refundService.NewOrchestrator(c.ReturnService, c.OrderRepo, c.Gateway, c.Dispatcher, refundService.Options{
		Currency: cfg.Stripe.Currency,
		Timeout:  cfg.Refund.Timeout,
		Clock:    c.Clock,
		Metrics:  c.Metrics,
	})
	return nil
}

// StartBackground runs the Redis push relay until Cleanup
func (c *Container) StartBackground() {
	if c.Broker == nil {
		return
	}
	ctx, stop := context.WithCancel(context.Background())
	prev := c.stopBackground
	c.stopBackground = func() {
		stop()
		if prev != nil {
			prev()
		}
	}

	go func() {
		if err := c.Broker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Push relay stopped")
		}
	}()
}

// HealthCheck reports the status of each backing service
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{}

	if c.DB != nil {
		status["database"] = "healthy"
		if err := c.DB.HealthCheck(ctx); err != nil {
			status["database"] = "unhealthy: " + err.Error()
		}
	} else {
		status["database"] = "memory"
	}

	if c.Redis != nil {
		status["redis"] = "healthy"
		if err := c.Redis.HealthCheck(ctx); err != nil {
			status["redis"] = "unhealthy: " + err.Error()
		}
	} else {
		status["redis"] = "disabled"
	}

	return status
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases resources in reverse order of creation
func (c *Container) Cleanup() {
	log.Info().Msg("Cleaning up container resources")

	if c.stopBackground != nil {
		c.stopBackground()
	}
	if c.Dispatcher != nil {
		c.Dispatcher.Close()
	}
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close asynq client")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
