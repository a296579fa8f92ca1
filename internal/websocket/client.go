// internal/websocket/client.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wardpulse-service/internal/broker"
	"wardpulse-service/internal/domain/subscription"
	wstypes "wardpulse-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64KB, inbound frames are small
)

// ReadMarker marks a history entry read and returns the new unread count.
// Implemented by the notification service.
type ReadMarker interface {
	MarkRead(ctx context.Context, identity, messageID string) (int, error)
}

// Client is one live WebSocket session. It implements broker.Transport:
// the broker owns delivery decisions, the client owns the wire.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	identity string
	jti      string
	brk      *broker.Broker
	reads    ReadMarker
	logger   *zap.Logger

	// connID is assigned by the broker after registration and read by the
	// pumps; guarded by mu.
	mu     sync.Mutex
	connID string

	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewClient(conn *websocket.Conn, auth *ClientAuth, brk *broker.Broker, reads ReadMarker, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		identity: auth.Identity,
		jti:      auth.JTI,
		brk:      brk,
		reads:    reads,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetConnectionID records the id the broker assigned at registration.
func (c *Client) SetConnectionID(id string) {
	c.mu.Lock()
	c.connID = id
	c.mu.Unlock()
}

func (c *Client) connectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

// Send implements broker.Transport. It never blocks: a full buffer means
// the peer has stopped reading and the connection is torn down.
func (c *Client) Send(frame *wstypes.Frame) error {
	data, err := frame.ToJSON()
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrSessionExpired
	default:
		c.Close()
		return ErrSendBufferFull
	}
}

// Close implements broker.Transport. Idempotent; the pumps exit once the
// context is cancelled.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
	})
	return nil
}

// ReadPump consumes inbound frames until the connection dies, then
// unregisters from the broker.
func (c *Client) ReadPump() {
	defer func() {
		c.brk.OnDisconnect(c.connectionID())
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.brk.Heartbeat(c.connectionID())
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Warn("websocket read error",
						zap.Error(err),
						zap.String("identity", c.identity),
					)
				}
				return
			}
			c.handleFrame(data)
		}
	}
}

// WritePump flushes the send buffer and keeps the protocol-level ping
// alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame routes one inbound frame. Any inbound activity counts as
// liveness.
func (c *Client) handleFrame(data []byte) {
	c.brk.Heartbeat(c.connectionID())

	frame, err := wstypes.ParseFrame(data)
	if err != nil {
		c.sendError("invalid_frame", "failed to parse frame", err)
		return
	}

	switch frame.Type {
	case wstypes.FrameTypePing:
		c.reply(wstypes.FrameTypePong, nil)

	case wstypes.FrameTypeAcknowledge:
		var payload wstypes.AcknowledgePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.MessageID == "" {
			c.sendError("invalid_acknowledge", "acknowledge needs a message_id", err)
			return
		}
		ok := c.brk.Acknowledge(payload.MessageID, c.identity)
		c.reply(wstypes.FrameTypeAckResult, wstypes.AckResultPayload{
			MessageID:    payload.MessageID,
			Acknowledged: ok,
		})

	case wstypes.FrameTypeUpdateSubscription:
		var req subscription.UpdateRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			c.sendError("invalid_subscription", "failed to parse subscription update", err)
			return
		}
		if err := req.Validate(); err != nil {
			c.sendError("invalid_subscription", "subscription update rejected", err)
			return
		}
		updated := c.brk.UpdateSubscription(c.identity, &req)
		c.reply(wstypes.FrameTypeSubscriptionUpdated, updated)

	case wstypes.FrameTypeMarkAsRead:
		var payload wstypes.MarkAsReadPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.MessageID == "" {
			c.sendError("invalid_mark_as_read", "mark_as_read needs a message_id", err)
			return
		}
		if c.reads == nil {
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		defer cancel()
		if _, err := c.reads.MarkRead(ctx, c.identity, payload.MessageID); err != nil {
			c.sendError("mark_as_read_failed", "could not mark message read", err)
		}

	default:
		c.sendError("unknown_frame", "unsupported frame type: "+string(frame.Type), nil)
	}
}

func (c *Client) reply(t wstypes.FrameType, payload interface{}) {
	frame, err := wstypes.NewFrame(t, payload)
	if err != nil {
		c.logger.Error("failed to build frame", zap.Error(err), zap.String("type", string(t)))
		return
	}
	if err := c.Send(frame); err != nil {
		c.logger.Debug("reply dropped", zap.Error(err), zap.String("type", string(t)))
	}
}

func (c *Client) sendError(code, message string, err error) {
	c.reply(wstypes.FrameTypeError, wstypes.ErrorPayload{
		Code:    code,
		Message: message,
		Details: errDetails(err),
	})
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
