package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gramdhan/ledger/internal/domain"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestJWTManagerVerify(t *testing.T) {
	manager := NewJWTManager(testSecret)

	tokenString := signToken(t, Claims{
		OwnerID: "asha",
		Phone:   "+919800000001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}, testSecret)

	claims, err := manager.Verify(tokenString)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.OwnerID != "asha" {
		t.Fatalf("expected owner asha, got %s", claims.OwnerID)
	}
	if claims.Phone != "+919800000001" {
		t.Fatalf("unexpected phone: %s", claims.Phone)
	}
}

func TestJWTManagerVerifyFallsBackToSubject(t *testing.T) {
	manager := NewJWTManager(testSecret)

	tokenString := signToken(t, jwt.RegisteredClaims{
		Subject:   "binod",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	claims, err := manager.Verify(tokenString)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.OwnerID != "binod" {
		t.Fatalf("expected subject fallback, got %s", claims.OwnerID)
	}
}

func TestJWTManagerVerifyExpired(t *testing.T) {
	manager := NewJWTManager(testSecret)

	tokenString := signToken(t, Claims{
		OwnerID: "asha",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSecret)

	if _, err := manager.Verify(tokenString); !errors.Is(err, domain.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManagerVerifyWrongSecret(t *testing.T) {
	manager := NewJWTManager(testSecret)

	tokenString := signToken(t, Claims{
		OwnerID: "asha",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "some-other-secret")

	if _, err := manager.Verify(tokenString); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManagerVerifyMissingIdentity(t *testing.T) {
	manager := NewJWTManager(testSecret)

	tokenString := signToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	if _, err := manager.Verify(tokenString); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
