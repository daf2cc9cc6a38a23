package main

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"returns-backend/internal/config"
)

// Config holds worker-only settings; everything shared comes from config.Config
type Config struct {
	App         *config.Config
	Concurrency int
	HealthAddr  string
}

// loadConfig layers worker settings over the application config
func loadConfig(app *config.Config) *Config {
	cfg := &Config{
		App:         app,
		Concurrency: envInt("WORKER_CONCURRENCY", 10),
		HealthAddr:  envString("WORKER_HEALTH_ADDR", ":9999"),
	}

	log.Info().
		Str("redis", app.Redis.Host).
		Int("concurrency", cfg.Concurrency).
		Str("health_addr", cfg.HealthAddr).
		Msg("[Config] Worker configuration loaded")

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
