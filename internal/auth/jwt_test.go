package auth

import (
	"testing"
	"time"

	"grc-backoffice/internal/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() models.User {
	u := models.User{Username: "auditor@grc.local", Role: models.RoleAuditor}
	u.ID = uuid.New()
	return u
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	user := testUser()

	raw, expires, err := tokens.Generate(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleAuditor, claims.Role)
}

func TestTokensRejectWrongSecret(t *testing.T) {
	raw, _, err := NewTokens("one", time.Hour).Generate(testUser())
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	raw, _, err := tokens.Generate(testUser())
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Minute).Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: uuid.NewString(), Role: models.RoleAdmin}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Hour).Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectGarbage(t *testing.T) {
	_, err := NewTokens("s3cret", time.Hour).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
