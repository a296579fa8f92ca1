// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims this service consumes. Token issuance lives
// with the identity provider; we only verify.
type Claims struct {
	Identity   string   `json:"identity"`
	Department string   `json:"department,omitempty"`
	Role       string   `json:"role,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Device     string   `json:"device,omitempty"`
	Purpose    string   `json:"purpose"` // access, refresh, ...
	jwt.RegisteredClaims
}

// HasRole checks if the claims contain a specific role.
func (c *Claims) HasRole(role string) bool {
	if c.Role == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity may publish and broadcast.
func (c *Claims) IsAdmin() bool {
	return c.HasRole("admin") || c.HasRole("super_admin")
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}
