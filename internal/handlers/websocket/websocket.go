// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"wardpulse-service/internal/broker"
	"wardpulse-service/internal/middleware"
	"wardpulse-service/internal/pkg/response"
	ws "wardpulse-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the dashboard host list is final
		return true
	},
}

type WebSocketHandler struct {
	brk    *broker.Broker
	auth   *ws.Authenticator
	reads  ws.ReadMarker
	logger *zap.Logger
}

func NewWebSocketHandler(brk *broker.Broker, auth *ws.Authenticator, reads ws.ReadMarker, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{brk: brk, auth: auth, reads: reads, logger: logger}
}

// HandleConnection verifies the credential, upgrades the connection, and
// hands the transport to the broker. No Connection exists if verification
// fails.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		response.Unauthorized(c, "missing authentication token")
		return
	}

	auth, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Unauthorized(c, "authentication failed")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(conn, auth, h.brk, h.reads, h.logger)
	connID := h.brk.OnConnect(auth.Identity, client, broker.ConnMetadata{
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
		Platform:   auth.Device,
		Department: auth.Department,
		Role:       auth.Role,
	})
	client.SetConnectionID(connID)

	go client.WritePump()
	go client.ReadPump()
}
