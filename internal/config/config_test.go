package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/grc")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/grc")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", " https://grc.example.com, ,http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://grc.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoad_MissingDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_SECRET", "s3cret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadTTL(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/grc")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "tomorrow")

	_, err := Load()
	assert.Error(t, err)
}
