package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/models"
)

// RequireRoles rejects requests whose access token carries none of the
// allowed roles. It trusts the role claim the gate verified; like the
// gate it never touches storage.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[string(role)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		if _, allowed := roleSet[claims.Role]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
