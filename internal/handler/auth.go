package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"threadx/internal/config"
	"threadx/internal/httputil"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/service"
	"threadx/internal/session"
	"threadx/internal/transport/http/middleware"
)

// AuthHandler groups sign-up, sign-in and account endpoints.
type AuthHandler struct {
	identity *service.IdentityService
	config   *config.Config
	log      zerolog.Logger
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(identity *service.IdentityService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		config:   cfg,
		log:      logger.New("AuthHandler"),
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	sess := session.New()
	user, err := h.identity.Register(r.Context(), sess, req)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}

	h.setTokenCookie(w, sess.Token())
	httputil.WriteJSON(w, http.StatusCreated, AuthResponse{User: user, Token: sess.Token()})
}

// Login handles POST /auth/login. The identifier is a username or an email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	sess := session.New()
	user, err := h.identity.Login(r.Context(), sess, req)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}

	h.setTokenCookie(w, sess.Token())
	httputil.WriteJSON(w, http.StatusOK, AuthResponse{User: user, Token: sess.Token()})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := h.identity.Logout(r.Context(), sess); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	h.clearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	_, user, ok := currentSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := currentSession(w, r)
	if !ok {
		return
	}

	var patch model.ProfilePatch
	if err := httputil.DecodeJSON(w, r, &patch); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.identity.UpdateProfile(r.Context(), sess, patch)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /me/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.ChangePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.identity.UpdatePassword(r.Context(), sess, req); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}

// DeleteMe handles DELETE /me. The body must carry the confirmation phrase.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.DeleteAccountRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Confirmation != model.DeleteConfirmationPhrase {
		httputil.WriteServiceError(w, h.log,
			model.NewValidationError("confirmation", "type "+model.DeleteConfirmationPhrase+" to confirm"))
		return
	}

	if err := h.identity.DeleteAccount(r.Context(), sess, user.ID); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	h.clearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.config.SessionTokenMaxAge,
		Expires:  time.Now().Add(time.Duration(h.config.SessionTokenMaxAge) * time.Second),
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
