package http

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"threadx/internal/config"
	"threadx/internal/handler"
	"threadx/internal/httputil"
	"threadx/internal/kv"
	"threadx/internal/model"
	"threadx/internal/realtime"
	"threadx/internal/repository"
	"threadx/internal/service"
	"threadx/internal/session"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	r, _ := newTestRouterWithHub(t)
	return r
}

func newTestRouterWithHub(t *testing.T) (chi.Router, *realtime.Hub) {
	t.Helper()
	store := kv.NewStore(kv.NewMemoryBackend())
	t.Cleanup(func() { store.Close() })

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)
	store.OnChange(hub.Listener("test"))

	svcs := service.NewServices(repository.New(store), session.NewTokens("test-secret", time.Hour), nil,
		service.WithBcryptCost(bcrypt.MinCost))
	cfg := &config.Config{SessionTokenMaxAge: 3600}
	return NewRouter(NewRouterConfig(cfg, svcs, hub, nil, zerolog.Nop())), hub
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func register(t *testing.T, r http.Handler, username string) handler.AuthResponse {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/auth/register", "", model.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](t, rec)
}

func login(t *testing.T, r http.Handler, identifier string) string {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: identifier, Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](t, rec).Token
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_RegisterErrors(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, "alice")

	rec := do(t, r, http.MethodPost, "/auth/register", "", model.RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httputil.ErrorResponse](t, rec)
	assert.Equal(t, httputil.ErrCodeValidation, body.Error.Code)
	assert.Equal(t, "password", body.Error.Field)

	rec = do(t, r, http.MethodPost, "/auth/register", "", model.RegisterRequest{
		Username: "ALICE", Email: "other@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: "alice", Password: "nope12"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httputil.ErrCodeInvalidCredential, decode[httputil.ErrorResponse](t, rec).Error.Code)

	rec = do(t, r, http.MethodPost, "/auth/register", "", map[string]string{"unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_OnlyLiveSessionIsAccepted(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")

	rec := do(t, r, http.MethodGet, "/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[model.User](t, rec).Username)

	register(t, r, "bob")
	rec = do(t, r, http.MethodGet, "/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodGet, "/threads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ThreadLifecycle(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")

	rec := do(t, r, http.MethodPost, "/threads", alice.Token, model.CreateThreadRequest{Content: "hello world"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	thread := decode[model.Thread](t, rec)
	assert.Equal(t, alice.User.ID, thread.UserID)

	rec = do(t, r, http.MethodPost, "/threads", alice.Token, model.CreateThreadRequest{Content: strings.Repeat("x", 281)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "content", decode[httputil.ErrorResponse](t, rec).Error.Field)

	bob := register(t, r, "bob")
	rec = do(t, r, http.MethodPost, "/users/"+alice.User.ID+"/follow", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/users/"+alice.User.ID+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(t, r, http.MethodPost, "/users/"+bob.User.ID+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/threads/"+thread.ID+"/like", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	liked := decode[model.Thread](t, rec)
	assert.Equal(t, 1, liked.Likes)
	assert.True(t, liked.Liked)

	rec = do(t, r, http.MethodPost, "/threads/"+thread.ID+"/comments", bob.Token, model.ContentRequest{Content: "nice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[model.Comment](t, rec)

	rec = do(t, r, http.MethodDelete, "/threads/"+thread.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, r, http.MethodGet, "/threads/missing", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/threads?category=following", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[handler.ThreadListResponse](t, rec).Threads, 1)
	rec = do(t, r, http.MethodGet, "/threads?category=bogus", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := login(t, r, "alice")
	rec = do(t, r, http.MethodGet, "/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[model.AlertListResponse](t, rec)
	assert.Equal(t, 3, feed.UnreadCount)
	require.Len(t, feed.Alerts, 3)
	assert.Equal(t, model.AlertComment, feed.Alerts[0].Type)

	rec = do(t, r, http.MethodPost, "/notifications/"+feed.Alerts[0].ID+"/read", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, "/notifications/unread-count", token, nil)
	assert.JSONEq(t, `{"unreadCount":2}`, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/notifications/read-all", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodDelete, "/notifications", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodDelete, "/threads/"+thread.ID+"/comments/"+comment.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, r, http.MethodPost, "/threads/"+thread.ID+"/privacy", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Thread](t, rec).IsPrivate)
	rec = do(t, r, http.MethodDelete, "/threads/"+thread.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_ProfileAndRecentSearches(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	rec := do(t, r, http.MethodGet, "/users/search?q=ALI", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), alice.User.ID)

	rec = do(t, r, http.MethodGet, "/users/"+alice.User.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[handler.ProfileResponse](t, rec)
	assert.Equal(t, "alice", profile.User.Username)
	assert.False(t, profile.IsFollowing)
	assert.False(t, profile.IsMe)

	rec = do(t, r, http.MethodGet, "/recent-searches", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), alice.User.ID)
	rec = do(t, r, http.MethodDelete, "/recent-searches/"+alice.User.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, "/recent-searches", bob.Token, nil)
	assert.JSONEq(t, `{"searches":[]}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/users/ghost", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/suggestions", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), alice.User.ID)
}

func TestRouter_Settings(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/settings/theme", "", nil)
	assert.JSONEq(t, `{"theme":"light"}`, rec.Body.String())
	rec = do(t, r, http.MethodPut, "/settings/theme", "", map[string]string{"theme": "dark"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodGet, "/settings/theme", "", nil)
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())
	rec = do(t, r, http.MethodPut, "/settings/theme", "", map[string]string{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AccountSettings(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")

	bio := "hello there"
	rec := do(t, r, http.MethodPatch, "/me", alice.Token, model.ProfilePatch{Bio: &bio})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bio, decode[model.User](t, rec).Bio)

	rec = do(t, r, http.MethodPut, "/me/password", alice.Token, model.ChangePasswordRequest{
		CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, http.MethodPut, "/me/password", alice.Token, model.ChangePasswordRequest{
		CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/changes", alice.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, http.MethodDelete, "/me", alice.Token, model.DeleteAccountRequest{Confirmation: "delete"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, http.MethodDelete, "/me", alice.Token, model.DeleteAccountRequest{Confirmation: model.DeleteConfirmationPhrase})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodGet, "/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, r, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: "alice", Password: "secret2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UploadAvatar(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice")

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="a.png"`)
	h.Set("Content-Type", model.ContentTypePNG)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(decode[model.User](t, rec).ProfileImage, "data:image/jpeg;base64,"))

	rec = do(t, r, http.MethodPost, "/me/avatar", alice.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ChangeSocket(t *testing.T) {
	r, hub := newTestRouterWithHub(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	alice := register(t, r, "alice")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/changes"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?access_token="+alice.Token, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	rec := do(t, r, http.MethodPost, "/threads", alice.Token, model.CreateThreadRequest{Content: "live"})
	require.Equal(t, http.StatusCreated, rec.Code)

	for {
		var msg realtime.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Payload.Key == kv.KeyThreads {
			assert.Equal(t, "change", msg.Type)
			assert.Equal(t, "test", msg.Payload.Origin)
			return
		}
	}
}
