// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Manager reads session state from Redis. Sessions are created by the
// identity provider; the broker only checks that a presented token still
// maps to a live, non-blacklisted session.
type Manager struct {
	client *redis.Client
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// GetSession retrieves a session, or an error if none exists for the
// identity/jti pair.
func (m *Manager) GetSession(ctx context.Context, identity, jti string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(identity, jti)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// IsTokenBlacklisted reports whether the token id has been revoked.
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := m.client.Exists(ctx, m.blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup failed: %w", err)
	}
	return n > 0, nil
}

// TouchSession refreshes the session's last-activity timestamp, keeping
// the stored TTL. Best effort.
func (m *Manager) TouchSession(ctx context.Context, identity, jti string) error {
	key := m.sessionKey(identity, jti)

	data, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil // session gone or expired, nothing to touch
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	session.LastActivityAt = time.Now()

	updated, err := json.Marshal(&session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.client.Set(ctx, key, updated, ttl).Err()
}

func (m *Manager) sessionKey(identity, jti string) string {
	return fmt.Sprintf("session:%s:%s", identity, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
