package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"notifybell/internal/config"
	"notifybell/internal/http/controller"
	"notifybell/internal/http/middleware"
	"notifybell/internal/metrics"
)

func NewRouter(cfg *config.Config, handler *controller.Handler, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		otelgin.Middleware(cfg.OTELServiceName),
		middleware.RequestID(),
		middleware.ZapLogger(logger),
		middleware.ZapRecovery(logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	notifications := router.Group("/notifications", middleware.JWTAuth(cfg.JWTSecret, cfg.AllowedEmailDomain, logger))
	notifications.GET("", handler.List)
	notifications.GET("/unread-count", handler.UnreadCount)
	notifications.GET("/stream", handler.Stream)
	notifications.POST("/read-all", handler.MarkAllRead)
	notifications.POST("/:id/read", handler.MarkRead)
	notifications.POST("/events", middleware.RequireAdmin(), handler.PublishEvent)

	return router
}
