package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grc-backoffice/internal/auth"
	"grc-backoffice/internal/config"
	"grc-backoffice/internal/handlers"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Tokens) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	tokens := auth.NewTokens("router-secret", time.Hour)
	cfg := &config.Config{SessionSecret: "router-secret", GinMode: gin.TestMode}
	api := &handlers.API{DB: db, Tokens: tokens, Log: logger.Discard()}
	return NewRouter(cfg, api), tokens
}

func bearer(t *testing.T, tokens *auth.Tokens, role models.UserRole) string {
	u := models.User{Username: string(role), Role: role}
	u.ID = uuid.New()
	raw, _, err := tokens.Generate(u)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_RequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/governance/scorecard", "/frameworks", "/workflows/rules", "/notifications"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_RoleGuards(t *testing.T) {
	r, tokens := newTestRouter(t)

	cases := []struct {
		method, path string
		role         models.UserRole
	}{
		{http.MethodPost, "/frameworks", models.RoleViewer},
		{http.MethodDelete, "/controls/" + uuid.NewString(), models.RoleComplianceManager},
		{http.MethodPost, "/workflows/rules", models.RoleAuditor},
		{http.MethodGet, "/audit", models.RoleViewer},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearer(t, tokens, tc.role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s as %s", tc.method, tc.path, tc.role)
	}
}

func TestRouter_BadIDIsRejectedBeforeServices(t *testing.T) {
	r, tokens := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/frameworks/not-a-uuid", nil)
	req.Header.Set("Authorization", bearer(t, tokens, models.RoleViewer))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
