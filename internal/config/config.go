package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App          AppConfig
	Log          LogConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Email        EmailConfig
	Stripe       StripeConfig
	MinIO        MinIOConfig
	Kafka        KafkaConfig
	Refund       RefundConfig
	Returns      ReturnsConfig
	Notification NotificationConfig
	Jobs         JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	// StorageDriver selects the repository implementation: "postgres" or "memory"
	StorageDriver string
	CORSOrigins   []string
}

type LogConfig struct {
	Level string
	File  string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RefundConfig struct {
	// Timeout bounds a single payment provider call
	Timeout time.Duration
	// StaleAfter is how long a cancelled-order refund may stay Initiated
	// before the scheduler releases it.
	StaleAfter time.Duration
}

type ReturnsConfig struct {
	WindowDays      int
	DefaultPageSize int
	MaxPageSize     int
}

type NotificationConfig struct {
	PushPoolSize  int
	RetentionDays int
}

type JobConfig struct {
	CleanupNotificationsCron string
	ReleaseStaleRefundsCron  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "Returns API"),
			Environment:   getEnv("APP_ENV", "development"),
			Port:          getEnv("APP_PORT", "8080"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
			CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		},
		Email: EmailConfig{
			Enabled:  getEnvBool("SMTP_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@returns.local"),
			UseTLS:   getEnvBool("SMTP_TLS", false),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  getEnv("REFUND_CURRENCY", "usd"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "returns"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "returns.lifecycle"),
		},
		Refund: RefundConfig{
			Timeout:    getEnvDuration("REFUND_TIMEOUT", 15*time.Second),
			StaleAfter: getEnvDuration("REFUND_STALE_AFTER", 30*time.Minute),
		},
		Returns: ReturnsConfig{
			WindowDays:      getEnvInt("RETURN_WINDOW_DAYS", 14),
			DefaultPageSize: getEnvInt("RETURNS_PAGE_SIZE", 10),
			MaxPageSize:     getEnvInt("RETURNS_MAX_PAGE_SIZE", 100),
		},
		Notification: NotificationConfig{
			PushPoolSize:  getEnvInt("PUSH_POOL_SIZE", 256),
			RetentionDays: getEnvInt("NOTIFICATION_RETENTION_DAYS", 90),
		},
		Jobs: JobConfig{
			CleanupNotificationsCron: getEnv("JOB_CLEANUP_NOTIFICATIONS_CRON", "0 3 * * *"),
			ReleaseStaleRefundsCron:  getEnv("JOB_RELEASE_STALE_REFUNDS_CRON", "*/10 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	switch c.App.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.App.StorageDriver)
	}

	if c.Refund.Timeout <= 0 {
		return fmt.Errorf("REFUND_TIMEOUT must be positive")
	}
	if c.Returns.DefaultPageSize <= 0 || c.Returns.MaxPageSize < c.Returns.DefaultPageSize {
		return fmt.Errorf("invalid page size settings: default=%d max=%d",
			c.Returns.DefaultPageSize, c.Returns.MaxPageSize)
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.App.StorageDriver == "memory" {
			return fmt.Errorf("memory storage is not allowed in production")
		}
		if c.Stripe.SecretKey == "" {
			log.Warn().Msg("STRIPE_SECRET_KEY not set - refunds will use the mock gateway")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
