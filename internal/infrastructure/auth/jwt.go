package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gramdhan/ledger/internal/domain"
)

// Claims are the verified claims carried by an access token. The
// subject is the owner ID the identity service assigned at
// registration; this service never issues tokens itself.
type Claims struct {
	OwnerID string `json:"owner_id"`
	Phone   string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager verifies access tokens issued by the identity service.
type JWTManager struct {
	secretKey []byte
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secretKey string) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey)}
}

// Verify verifies a JWT token and returns the claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.OwnerID == "" {
		claims.OwnerID = claims.Subject
	}
	if claims.OwnerID == "" {
		return nil, domain.ErrInvalidToken
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrExpiredToken
	}

	return claims, nil
}
