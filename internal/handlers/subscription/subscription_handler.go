// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"

	"wardpulse-service/internal/broker"
	domain "wardpulse-service/internal/domain/subscription"
	"wardpulse-service/internal/middleware"
	"wardpulse-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	brk *broker.Broker
}

func NewSubscriptionHandler(brk *broker.Broker) *SubscriptionHandler {
	return &SubscriptionHandler{brk: brk}
}

// GetMine returns the caller's effective subscription (the default if
// none has been stored).
func (h *SubscriptionHandler) GetMine(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)
	response.Success(c, http.StatusOK, "subscription", h.brk.GetSubscription(identity))
}

// UpdateMine merges a partial update into the caller's subscription.
// Fields left out of the request are untouched.
func (h *SubscriptionHandler) UpdateMine(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	var req domain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid subscription update", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationError(c, "subscription update rejected", err)
		return
	}

	updated := h.brk.UpdateSubscription(identity, &req)
	response.Success(c, http.StatusOK, "subscription updated", updated)
}
