// internal/app/router.go
package app

import (
	notifHandler "wardpulse-service/internal/handlers/notification"
	subHandler "wardpulse-service/internal/handlers/subscription"
	wsHandler "wardpulse-service/internal/handlers/websocket"
	"wardpulse-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	NotifHandler *notifHandler.NotificationHandler
	SubHandler   *subHandler.SubscriptionHandler
	WSHandler    *wsHandler.WebSocketHandler
	AuthMW       *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	notifications.Use(h.AuthMW.Auth())
	{
		notifications.GET("", h.NotifHandler.GetHistory)
		notifications.GET("/count/unread", h.NotifHandler.GetUnreadCount)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
		notifications.PUT("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.POST("/:id/ack", h.NotifHandler.Acknowledge)
	}

	// Publishing is restricted to service/admin identities.
	publish := api.Group("/notifications")
	publish.Use(h.AuthMW.Auth(), h.AuthMW.RequireAdmin())
	{
		publish.POST("/publish", h.NotifHandler.Publish)
		publish.POST("/broadcast", h.NotifHandler.Broadcast)
		publish.GET("/stats", h.NotifHandler.GetStats)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMW.Auth())
	{
		subscriptions.GET("/me", h.SubHandler.GetMine)
		subscriptions.PUT("/me", h.SubHandler.UpdateMine)
	}
}
