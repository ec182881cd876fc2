package middleware

import (
	"net/http"
	"strings"

	"grc-backoffice/internal/auth"
	"grc-backoffice/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionUserID = "user_id"
	SessionRole   = "role"
)

// RequireAuth accepts either a bearer token or a login session and stores the caller
// in the request context.
func RequireAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				abortUnauthorized(c, "unsupported authorization scheme")
				return
			}
			claims, err := tokens.Validate(strings.TrimSpace(raw))
			if err != nil {
				abortUnauthorized(c, "invalid or expired token")
				return
			}
			setCaller(c, uuid.MustParse(claims.UserID), claims.Role)
			c.Next()
			return
		}

		sess := sessions.Default(c)
		rawID, _ := sess.Get(SessionUserID).(string)
		role, _ := sess.Get(SessionRole).(string)
		userID, err := uuid.Parse(rawID)
		if err != nil || role == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		setCaller(c, userID, models.UserRole(role))
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		if _, ok := roleSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
