package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/backend/internal/domain"
)

type stubSessions struct {
	user *domain.User
}

func (s *stubSessions) UserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if s.user == nil {
		return nil, domain.Errorf(domain.ENOTFOUND, "test", "no session")
	}
	return s.user, nil
}

func TestWithRequestLoggerAfterWithUser(t *testing.T) {
	// The server wires WithUser before WithRequestLogger so the
	// request logger picks up the resolved identity. This exercises
	// that order end to end.
	user := &domain.User{ID: uuid.New(), Email: "pm@obralink.test"}
	sessions := &stubSessions{user: user}

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetLogger(r.Context()).Info("handled")
		w.WriteHeader(http.StatusOK)
	})
	chain := RequestID(WithUser(sessions)(WithRequestLogger(base)(inner)))

	req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"user_id":"`+user.ID.String()+`"`)
	assert.Contains(t, out, `"request_id"`)
	assert.Contains(t, out, `"path":"/api/payments"`)
}

func TestWithRequestLoggerAnonymous(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetLogger(r.Context()).Info("handled")
	})
	chain := WithUser(&stubSessions{})(WithRequestLogger(base)(inner))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	chain.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, buf.String(), "user_id")
}

func TestGetLoggerFallback(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, GetLogger(context.Background(), fallback))
	assert.Same(t, slog.Default(), GetLogger(context.Background()))
}
