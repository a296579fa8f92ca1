// internal/pkg/session/types.go
package session

import "time"

// SessionData mirrors what the identity provider writes to Redis when it
// issues a token. This service only reads it.
type SessionData struct {
	JTI            string    `json:"jti"`
	Identity       string    `json:"identity"`
	Device         string    `json:"device,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}
