// internal/middleware/helpers.go
package middleware

import (
	"wardpulse-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// GetIdentity returns the verified identity from the request context.
func GetIdentity(c *gin.Context) (string, bool) {
	v, exists := c.Get("identity")
	if !exists {
		return "", false
	}
	identity, ok := v.(string)
	return identity, ok && identity != ""
}

// MustGetIdentity gets the identity from context or panics; only for use
// behind the Auth middleware.
func MustGetIdentity(c *gin.Context) string {
	identity, ok := GetIdentity(c)
	if !ok {
		panic("identity not found in context")
	}
	return identity
}

// GetClaims returns the full verified claims.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
