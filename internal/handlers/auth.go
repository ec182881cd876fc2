package handlers

import (
	"errors"
	"net/http"
	"strings"

	"grc-backoffice/internal/middleware"
	"grc-backoffice/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errBadCredentials = errors.New("invalid username or password")

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) authenticate(c *gin.Context) (*models.User, bool) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "username and password are required")
		return nil, false
	}

	var user models.User
	err := a.DB.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(in.Username)).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		a.fail(c, err)
		return nil, false
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errBadCredentials.Error()})
		return nil, false
	}
	return &user, true
}

// Login opens a cookie session.
func (a *API) Login(c *gin.Context) {
	user, ok := a.authenticate(c)
	if !ok {
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID.String())
	sess.Set(middleware.SessionRole, string(user.Role))
	if err := sess.Save(); err != nil {
		a.fail(c, err)
		return
	}

	a.Audit.Record(user.ID, "user", user.ID.String(), "login", "session login")
	c.JSON(http.StatusOK, user)
}

func (a *API) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

// IssueToken exchanges credentials for a bearer token.
func (a *API) IssueToken(c *gin.Context) {
	user, ok := a.authenticate(c)
	if !ok {
		return
	}

	token, expires, err := a.Tokens.Generate(*user)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.Audit.Record(user.ID, "user", user.ID.String(), "token", "bearer token issued")
	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresAt":   expires,
		"user":        user,
	})
}

func (a *API) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"displayName": user.DisplayName(),
	})
}
