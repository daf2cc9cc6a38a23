package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"returns-backend/pkg/container"
)

// startServices runs the startup checks and exposes the probe endpoints
func startServices(c *container.Container, cfg *Config) error {
	log.Info().Str("app", cfg.App.App.Name).Msg("Returns worker starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, status := range c.HealthCheck(ctx) {
		if strings.HasPrefix(status, "unhealthy") {
			return fmt.Errorf("%s: %s", name, status)
		}
		log.Info().Str("service", name).Msg("Health check OK")
	}

	go startHealthCheckServer(c, cfg.HealthAddr)

	return nil
}

// startHealthCheckServer serves /health, /ready and /metrics for the worker
func startHealthCheckServer(c *container.Container, addr string) {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "returns-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		services := c.HealthCheck(checkCtx)
		for _, s := range services {
			if strings.HasPrefix(s, "unhealthy") {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "services": services})
				return
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY", "services": services})
	})
	router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	log.Info().Str("addr", addr).Msg("[Health] Starting health check server")
	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("[Health] Failed to start")
	}
}
