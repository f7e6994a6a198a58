package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strandhq/strand/internal/auth"
	"github.com/strandhq/strand/internal/models"
)

// ContextKeyIdentity is where the authenticated caller's identity tuple
// lives in the gin context. A constant so a typo'd key fails to compile in
// handlers instead of silently returning nil.
const ContextKeyIdentity = "identity"

// AuthMiddleware validates the Bearer token and stores the caller's identity
// for downstream handlers. On a missing/invalid token the chain aborts with
// 401 and the handler never runs.
//
// The secret is a parameter rather than a config import so main.go does the
// wiring and tests can pass any secret.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyIdentity, claims.Identity)
		c.Next()
	}
}

// GetIdentity returns the caller's identity tuple. The zero Identity (nil
// UUIDs) is returned if auth never ran — it fails any scoped query
// gracefully rather than panicking.
func GetIdentity(c *gin.Context) models.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return models.Identity{}
	}
	identity, ok := val.(models.Identity)
	if !ok {
		return models.Identity{}
	}
	return identity
}
