package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gramdhan/ledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// CallerContextKey is the context key for the authenticated caller
	CallerContextKey ContextKey = "caller"
)

// Caller is the verified identity attached to the request context.
type Caller struct {
	OwnerID string
	Phone   string
}

// AuthMiddleware creates an authentication middleware. Tokens are
// verified only; this service never issues them.
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			caller := &Caller{
				OwnerID: claims.OwnerID,
				Phone:   claims.Phone,
			}

			ctx := context.WithValue(r.Context(), CallerContextKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerFromContext extracts the authenticated caller from context
func GetCallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerContextKey).(*Caller)
	return caller, ok
}
