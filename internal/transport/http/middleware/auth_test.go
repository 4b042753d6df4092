package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"threadx/internal/model"
	"threadx/internal/session"
)

type stubAuth map[string]model.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*session.Session, error) {
	u, ok := s[token]
	if !ok {
		return nil, model.ErrInvalidSession
	}
	return session.For(u, token), nil
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
}

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{"good": {ID: "u1", Username: "alice"}}
	h := AuthMiddleware(auth)(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"}) }, http.StatusOK, "u1"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=good" }, http.StatusOK, "u1"},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"stale", func(r *http.Request) { r.Header.Set("Authorization", "Bearer old") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	h := OptionalAuthMiddleware(stubAuth{"good": {ID: "u1"}})(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/threads", nil)
	req.Header.Set("Authorization", "bearer good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "u1", rec.Body.String())
}
