// internal/service/sms/service.go
package sms

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

// Sender posts notifications to an external SMS gateway. The gateway owns
// contact resolution and retries; this adapter is one attempt per task.
type Sender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

func NewSender(gatewayURL, apiKey string) *Sender {
	return &Sender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Sender) Channel() subscription.Channel {
	return subscription.ChannelSMS
}

type gatewayRequest struct {
	Identity string `json:"identity"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Ref      string `json:"ref"`
}

func (s *Sender) Send(ctx context.Context, identity string, msg *notification.Message) error {
	if s.gatewayURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	payload, err := json.Marshal(gatewayRequest{
		Identity: identity,
		Text:     fmt.Sprintf("%s: %s", msg.Title, msg.Body),
		Priority: string(msg.Priority),
		Ref:      msg.ID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
