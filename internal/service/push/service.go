// internal/service/push/service.go
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
)

// Sender forwards notifications to a mobile push provider. Device-token
// resolution is the provider's concern, keyed by identity.
type Sender struct {
	providerURL string
	apiKey      string
	client      *http.Client
}

func NewSender(providerURL, apiKey string) *Sender {
	return &Sender{
		providerURL: providerURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Sender) Channel() subscription.Channel {
	return subscription.ChannelPush
}

type pushRequest struct {
	Identity string                 `json:"identity"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Priority string                 `json:"priority"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Ref      string                 `json:"ref"`
}

func (s *Sender) Send(ctx context.Context, identity string, msg *notification.Message) error {
	if s.providerURL == "" {
		return fmt.Errorf("push provider not configured")
	}

	payload, err := json.Marshal(pushRequest{
		Identity: identity,
		Title:    msg.Title,
		Body:     msg.Body,
		Priority: string(msg.Priority),
		Data:     msg.Payload,
		Ref:      msg.ID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.providerURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned %d", resp.StatusCode)
	}
	return nil
}
