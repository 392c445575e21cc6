package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/obralink/backend/internal/domain"
)

// SessionStore resolves bearer tokens to users.
type SessionStore interface {
	UserBySessionToken(ctx context.Context, token string) (*domain.User, error)
}

// WithUser resolves the Authorization bearer token and attaches the
// user to the request context. The middleware is optional: requests
// without a valid token continue anonymously and RequireUser decides
// whether that matters.
func WithUser(sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.UserBySessionToken(r.Context(), token)
			if err != nil {
				// Expired or unknown token reads as anonymous.
				next.ServeHTTP(w, r)
				return
			}

			ctx := domain.NewContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that did not authenticate. The API is
// JSON-only, so the rejection body mirrors the handlers' error shape.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !domain.IsAuthenticated(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Valid session required","status":401,"reason":"` + domain.EUNAUTHORIZED + `"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
