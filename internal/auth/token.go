// Package auth provides JWT bearer authentication for the Aurelius
// catalogue service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

// TokenManager generates and validates JWT access tokens.
type TokenManager interface {
	// Generate mints a signed token for the user.
	Generate(userID int64) (string, error)

	// Validate parses and verifies a token string.
	Validate(tokenString string) (*Claims, error)
}

// Claims is the payload carried in an access token. The token holds only the
// user's identity; role and active status are read fresh from the database on
// every request, so a role change takes effect without reissuing tokens.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// jwtManager implements TokenManager with HMAC-SHA256 signing.
type jwtManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewTokenManager creates a new jwtManager. The secret must be at least 32
// bytes for HS256.
func NewTokenManager(secretKey string, tokenDuration time.Duration) (TokenManager, error) {
	if secretKey == "" {
		return nil, errors.New("token secret cannot be empty")
	}
	if len(secretKey) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes for HS256")
	}
	return &jwtManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}, nil
}

// Generate mints a signed token for the user.
func (m *jwtManager) Generate(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "aurelius-catalogue",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and verifies a token string. Any failure, including
// expiry and a wrong signing method, surfaces as domain.ErrInvalidToken.
func (m *jwtManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
