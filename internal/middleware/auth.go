package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/security"
)

// ContextClaims is the gin context key holding the verified
// security.AccessClaims for the request.
const ContextClaims = "access_claims"

// Auth is the gate in front of every protected route. It verifies the
// access token from the cookie (or bearer header) and nothing else: no
// database lookup, so a revoked user keeps access for at most one
// access-token lifetime.
func Auth(cfg *config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := security.AccessTokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		claims, err := security.VerifyAccessToken(token, cfg.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set(ContextClaims, *claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims set by Auth. The bool is
// false on unprotected routes where the gate never ran.
func ClaimsFrom(c *gin.Context) (security.AccessClaims, bool) {
	val, exists := c.Get(ContextClaims)
	if !exists {
		return security.AccessClaims{}, false
	}
	claims, ok := val.(security.AccessClaims)
	return claims, ok
}
