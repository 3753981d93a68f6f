package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the uniform verification failure. Signature
// mismatch, malformed payload, expiry, and wrong token kind all
// collapse into it so callers learn nothing about why.
var ErrInvalidToken = errors.New("invalid or expired token")

const refreshTokenType = "refresh"

// TokenService issues and verifies signed, time-bound tokens using
// the server-held HMAC secret.
type TokenService struct {
	cfg    config.TokenConfig
	secret []byte
}

// AccessClaims is the minimal claim set carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	// TokenType is never set on access tokens; it exists so a refresh
	// token presented as an access token is detected and rejected.
	TokenType string `json:"token_type,omitempty"`
}

// RefreshClaims marks the token as a refresh token so it can never be
// replayed as an access token and vice versa.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
}

// NewTokenService creates a new TokenService. An empty secret is only
// tolerated in development, where an ephemeral one is generated;
// tokens then do not survive restarts.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	secret := []byte(cfg.SigningSecret)
	if len(secret) == 0 {
		ephemeral := make([]byte, 32)
		if _, err := rand.Read(ephemeral); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral signing secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(ephemeral))
	}
	return &TokenService{cfg: cfg, secret: secret}, nil
}

// GenerateAccessToken creates a short-lived access token for the user.
func (s *TokenService) GenerateAccessToken(user *model.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a longer-lived refresh token for the user.
func (s *TokenService) GenerateRefreshToken(user *model.User) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenTTL)),
			ID:        uuid.New().String(),
		},
		Username:  user.Username,
		TokenType: refreshTokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies an access token and returns its claims.
// Verification fails closed: every failure is ErrInvalidToken.
func (s *TokenService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := s.parse(tokenString, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// ValidateRefreshToken verifies a refresh token and returns its claims.
// A token lacking the refresh discriminator is rejected uniformly.
func (s *TokenService) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.parse(tokenString, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != refreshTokenType {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTokenTTL
}
