package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"returns-backend/internal/shared/middleware"
	"returns-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(c.Metrics),
		cors.New(cors.Config{
			AllowOrigins:     c.Config.App.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		auth := middleware.AuthMiddleware(c.JWTManager)
		admin := v1.Group("/admin", auth, middleware.AdminMiddleware())

		setupReturnRoutes(v1, auth, c)
		setupOrderRoutes(v1, auth, c)
		setupNotificationRoutes(v1, auth, c)
		setupAdminReturnRoutes(admin, c)
		setupAdminOrderRoutes(admin, c)
	}

	return router
}

// ========================================
// RETURN ROUTES
// ========================================
func setupReturnRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	returns := v1.Group("/returns", auth)
	{
		returns.POST("", c.ReturnHandler.CreateReturn)
		returns.GET("", c.ReturnHandler.ListMyReturns)
		returns.POST("/images", c.ReturnHandler.UploadImage)
		returns.GET("/:id", c.ReturnHandler.GetMyReturn)
		returns.POST("/:id/cancel", c.ReturnHandler.CancelMyReturn)
	}
}

// ========================================
// CANCELLED ORDER ROUTES
// ========================================
func setupOrderRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	orders := v1.Group("/orders", auth)
	{
		orders.GET("/cancelled", c.OrderHandler.ListMyCancelledOrders)
		orders.GET("/cancelled/:id", c.OrderHandler.GetMyCancelledOrder)
	}
}

// ========================================
// NOTIFICATION ROUTES
// ========================================
func setupNotificationRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc, c *container.Container) {
	notifications := v1.Group("/notifications", auth)
	{
		notifications.GET("", c.NotificationHandler.ListNotifications)
		notifications.POST("/read-all", c.NotificationHandler.MarkAllRead)
		notifications.DELETE("/:id", c.NotificationHandler.DeleteNotification)
		notifications.DELETE("", c.NotificationHandler.DeleteNotifications)
		notifications.GET("/ws", c.WebSocketHandler.Stream)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminReturnRoutes(admin *gin.RouterGroup, c *container.Container) {
	returns := admin.Group("/returns")
	{
		returns.GET("", c.ReturnHandler.ListAllReturns)
		returns.GET("/export", c.ReturnHandler.ExportReturns)
		returns.GET("/:id", c.ReturnHandler.GetReturn)
		returns.POST("/:id/approve", c.ReturnHandler.ApproveReturn)
		returns.POST("/:id/reject", c.ReturnHandler.RejectReturn)
		returns.POST("/:id/pick", c.ReturnHandler.PickReturn)
		returns.POST("/:id/refund", c.RefundHandler.RefundReturn)
	}
}

func setupAdminOrderRoutes(admin *gin.RouterGroup, c *container.Container) {
	orders := admin.Group("/orders")
	{
		orders.GET("/cancelled", c.OrderHandler.ListAllCancelledOrders)
		orders.POST("/:id/cancellation", c.OrderHandler.RecordCancellation)
		orders.POST("/:id/refund", c.RefundHandler.RefundCancelledOrder)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		services := appCtx.HealthCheck(ctx)
		status := "ok"
		for _, s := range services {
			if strings.HasPrefix(s, "unhealthy") {
				status = "degraded"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services":  services,
		})
	}
}
