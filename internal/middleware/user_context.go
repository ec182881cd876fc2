package middleware

import (
	"grc-backoffice/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ctxUserID      = "CurrentUserID"
	ctxRole        = "CurrentRole"
	ctxCurrentUser = "CurrentUser"
)

func setCaller(c *gin.Context, userID uuid.UUID, role models.UserRole) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, role)
}

func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func CurrentRole(c *gin.Context) (models.UserRole, bool) {
	v, ok := c.Get(ctxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(models.UserRole)
	return role, ok
}

// InjectUser loads the authenticated user row. Must run after RequireAuth.
func InjectUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := CurrentUserID(c); ok {
			var user models.User
			if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", uid).Error; err == nil {
				c.Set(ctxCurrentUser, user)
			}
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxCurrentUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
