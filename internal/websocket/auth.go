// internal/websocket/auth.go
package websocket

import (
	"context"

	"wardpulse-service/internal/pkg/jwt"
	"wardpulse-service/internal/pkg/session"
)

// ClientAuth is the verified result of a handshake.
type ClientAuth struct {
	Identity   string
	JTI        string
	Department string
	Role       string
	Device     string
}

// Authenticator implements the verify(token) capability: JWT signature
// check plus Redis session and blacklist checks. No Connection exists
// until this succeeds.
type Authenticator struct {
	verifier *jwt.Verifier
	sessions *session.Manager
}

func NewAuthenticator(verifier *jwt.Verifier, sessions *session.Manager) *Authenticator {
	return &Authenticator{verifier: verifier, sessions: sessions}
}

// Authenticate validates the credential token and resolves the identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := a.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := a.sessions.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	if _, err := a.sessions.GetSession(ctx, claims.Identity, claims.ID); err != nil {
		return nil, ErrSessionExpired
	}

	return &ClientAuth{
		Identity:   claims.Identity,
		JTI:        claims.ID,
		Department: claims.Department,
		Role:       claims.Role,
		Device:     claims.Device,
	}, nil
}
