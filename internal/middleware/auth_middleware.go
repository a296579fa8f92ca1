// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"wardpulse-service/internal/pkg/jwt"
	"wardpulse-service/internal/pkg/response"
	"wardpulse-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	verifier *jwt.Verifier
	sessions *session.Manager
}

func NewAuthMiddleware(verifier *jwt.Verifier, sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, sessions: sessions}
}

// Auth validates the bearer token and checks the backing session.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		blacklisted, err := m.sessions.IsTokenBlacklisted(c.Request.Context(), claims.ID)
		if err != nil || blacklisted {
			response.Error(c, http.StatusUnauthorized, "token revoked", err)
			return
		}
		if _, err := m.sessions.GetSession(c.Request.Context(), claims.Identity, claims.ID); err != nil {
			response.Error(c, http.StatusUnauthorized, "session expired", err)
			return
		}

		c.Set("identity", claims.Identity)
		c.Set("jti", claims.ID)
		c.Set("department", claims.Department)
		c.Set("role", claims.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

// RequireAdmin gates publish/broadcast endpoints.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok || !claims.IsAdmin() {
			response.Error(c, http.StatusForbidden, "admin role required", nil)
			return
		}
		c.Next()
	}
}

// ExtractToken pulls the bearer token from the Authorization header or,
// for WebSocket handshakes, the token query parameter.
func ExtractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return ""
}
