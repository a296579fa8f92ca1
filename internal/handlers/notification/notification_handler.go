// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"

	"wardpulse-service/internal/broker"
	domain "wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/middleware"
	"wardpulse-service/internal/pkg/response"
	notifservice "wardpulse-service/internal/service/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	brk     *broker.Broker
	service *notifservice.Service
}

func NewNotificationHandler(brk *broker.Broker, service *notifservice.Service) *NotificationHandler {
	return &NotificationHandler{brk: brk, service: service}
}

// Publish pushes a single-target notification into the broker.
func (h *NotificationHandler) Publish(c *gin.Context) {
	var req domain.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid publish request", err)
		return
	}

	msg := &domain.Message{
		Type:           req.Type,
		Priority:       req.Priority,
		Title:          req.Title,
		Body:           req.Body,
		Payload:        req.Payload,
		TargetIdentity: req.TargetIdentity,
		Department:     req.Department,
		ExpiresAt:      req.ExpiresAt,
		RequiresAck:    req.RequiresAck,
	}

	id, err := h.brk.Publish(msg)
	if err != nil {
		response.ValidationError(c, "message rejected", err)
		return
	}
	response.Success(c, http.StatusAccepted, "message published", gin.H{"message_id": id})
}

// Broadcast fans a notification out to every identity matching the
// criteria.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req domain.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid broadcast request", err)
		return
	}
	if !req.Type.IsValid() {
		response.ValidationError(c, "unknown message type", nil)
		return
	}

	template := &domain.Message{
		Type:        req.Type,
		Priority:    req.Priority,
		Title:       req.Title,
		Body:        req.Body,
		Payload:     req.Payload,
		Department:  req.Department,
		ExpiresAt:   req.ExpiresAt,
		RequiresAck: req.RequiresAck,
	}

	ids := h.brk.Broadcast(template, req.Criteria)
	response.Success(c, http.StatusAccepted, "broadcast published", gin.H{
		"message_ids": ids,
		"targets":     len(ids),
	})
}

// Acknowledge confirms receipt of a requires-ack message.
func (h *NotificationHandler) Acknowledge(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)
	messageID := c.Param("id")

	if !h.brk.Acknowledge(messageID, identity) {
		response.NotFound(c, "message unknown or already acknowledged")
		return
	}
	response.Success(c, http.StatusOK, "acknowledged", gin.H{"message_id": messageID})
}

// GetHistory lists the caller's persisted notifications.
func (h *NotificationHandler) GetHistory(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var filters domain.HistoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid filters", err)
		return
	}

	page, err := h.service.History(c.Request.Context(), identity, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load history", err)
		return
	}
	response.Success(c, http.StatusOK, "history", page)
}

// GetUnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	count, err := h.service.UnreadCount(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to count unread", err)
		return
	}
	response.Success(c, http.StatusOK, "unread count", gin.H{"unread_count": count})
}

// MarkAsRead marks one notification read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)
	messageID := c.Param("id")

	count, err := h.service.MarkRead(c.Request.Context(), identity, messageID)
	if err != nil {
		response.NotFound(c, "notification not found")
		return
	}
	response.Success(c, http.StatusOK, "marked as read", gin.H{"unread_count": count})
}

// MarkAllAsRead marks every notification read.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	if err := h.service.MarkAllRead(c.Request.Context(), identity); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to mark all as read", err)
		return
	}
	response.Success(c, http.StatusOK, "all marked as read", nil)
}

// GetStats returns the broker statistics readout.
func (h *NotificationHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "broker stats", h.brk.Stats())
}
