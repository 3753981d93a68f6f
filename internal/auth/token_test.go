package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/model"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.TokenConfig{
		SigningSecret:   "test-secret-0123456789abcdef",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		Issuer:          "claimdesk",
	})
	require.NoError(t, err)
	return svc
}

func testUser() *model.User {
	return &model.User{
		ID:       "usr_0123456789abcdef",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Role:     model.RoleManager,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, "claimdesk", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	token, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute, -time.Minute)
	user := testUser()

	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	refresh, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass access validation")

	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken, "access token must not pass refresh validation")
}

func TestTokenFromDifferentSecretRejected(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)
	other, err := NewTokenService(config.TokenConfig{
		SigningSecret:   "completely-different-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "claimdesk",
	})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 7*24*time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.ValidateAccessToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestEphemeralSecretGenerated(t *testing.T) {
	svc, err := NewTokenService(config.TokenConfig{
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "claimdesk",
	})
	require.NoError(t, err)
	require.NotEmpty(t, svc.secret)

	// Tokens signed with an ephemeral secret still round-trip within
	// the same process.
	token, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(token)
	assert.NoError(t, err)
}
