// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FrameType is the discriminator carried on every frame.
type FrameType string

const (
	// Client -> server
	FrameTypePing               FrameType = "ping"
	FrameTypeAcknowledge        FrameType = "acknowledge"
	FrameTypeUpdateSubscription FrameType = "update_subscription"
	FrameTypeMarkAsRead         FrameType = "mark_as_read"

	// Server -> client
	FrameTypePong                  FrameType = "pong"
	FrameTypeNotification          FrameType = "notification"
	FrameTypeConnectionEstablished FrameType = "connection_established"
	FrameTypeUnreadCount           FrameType = "unread_count"
	FrameTypeAckResult             FrameType = "ack_result"
	FrameTypeSubscriptionUpdated   FrameType = "subscription_updated"
	FrameTypeError                 FrameType = "error"
)

// Frame is the universal wire format, both directions.
type Frame struct {
	Type      FrameType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewFrame builds a frame, marshaling payload. A payload that fails to
// marshal is a programming error surfaced to the caller.
func NewFrame(t FrameType, payload interface{}) (*Frame, error) {
	f := &Frame{Type: t, Timestamp: time.Now()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		f.Payload = raw
	}
	return f, nil
}

// ParseFrame decodes an inbound frame.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	return &f, nil
}

func (f *Frame) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}

// AcknowledgePayload is the payload of an acknowledge frame.
type AcknowledgePayload struct {
	MessageID string `json:"message_id"`
}

// MarkAsReadPayload is the payload of a mark_as_read frame.
type MarkAsReadPayload struct {
	MessageID string `json:"message_id"`
}

// AckResultPayload reports the outcome of an acknowledge frame.
type AckResultPayload struct {
	MessageID    string `json:"message_id"`
	Acknowledged bool   `json:"acknowledged"`
}

// ErrorPayload is sent on malformed or unprocessable inbound frames.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
