package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = errors.New("token has expired")
)

// Token kinds. Access tokens authenticate API requests and socket upgrades;
// refresh tokens may only be exchanged for a new pair.
const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// JWTConfig holds the signing parameters for issued tokens.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// DefaultJWTConfig returns the development defaults. The secret must be
// overridden through JWT_SECRET_KEY outside local runs.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "dev-only-secret-change-me",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "chat-backend",
	}
}

// TokenClaims is the claim set carried by every issued token.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies the HS256 access/refresh token pair.
type JWTManager struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTManager creates a manager for the given configuration. The parser
// pins the accepted algorithm so a token announcing another method (or
// "none") is rejected before any key material is consulted.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateAccessToken issues a short-lived token for request authentication.
func (m *JWTManager) GenerateAccessToken(userID, username string) (string, error) {
	return m.issue(userID, username, tokenKindAccess, m.config.AccessTokenDuration)
}

// GenerateRefreshToken issues a long-lived token exchangeable for a new pair.
func (m *JWTManager) GenerateRefreshToken(userID, username string) (string, error) {
	return m.issue(userID, username, tokenKindRefresh, m.config.RefreshTokenDuration)
}

func (m *JWTManager) issue(userID, username, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:   userID,
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (m *JWTManager) verify(tokenString, kind string) (*TokenClaims, error) {
	token, err := m.parser.ParseWithClaims(tokenString, &TokenClaims{}, func(*jwt.Token) (any, error) {
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken verifies an access token and returns its claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	return m.verify(tokenString, tokenKindAccess)
}

// ValidateRefreshToken verifies a refresh token and returns its claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*TokenClaims, error) {
	return m.verify(tokenString, tokenKindRefresh)
}

// AccessTokenDuration returns the access token lifetime in seconds, as
// reported to clients alongside issued pairs.
func (m *JWTManager) AccessTokenDuration() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}
