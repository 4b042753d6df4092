package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"threadx/internal/httputil"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/service"
)

// SettingsHandler serves the device preferences: theme and recent searches.
type SettingsHandler struct {
	prefs *service.PreferenceService
	log   zerolog.Logger
}

func NewSettingsHandler(prefs *service.PreferenceService) *SettingsHandler {
	return &SettingsHandler{
		prefs: prefs,
		log:   logger.New("SettingsHandler"),
	}
}

type themeBody struct {
	Theme model.Theme `json:"theme"`
}

// RecentSearches handles GET /recent-searches
func (h *SettingsHandler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := currentSession(w, r); !ok {
		return
	}

	searches, err := h.prefs.RecentSearches(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"searches": searches})
}

// RemoveRecentSearch handles DELETE /recent-searches/{id}
func (h *SettingsHandler) RemoveRecentSearch(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := currentSession(w, r); !ok {
		return
	}

	if err := h.prefs.RemoveRecentSearch(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRecentSearches handles DELETE /recent-searches
func (h *SettingsHandler) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := currentSession(w, r); !ok {
		return
	}

	if err := h.prefs.ClearRecentSearches(r.Context()); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Theme handles GET /settings/theme. It is public so the login page can
// render in the stored scheme.
func (h *SettingsHandler) Theme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.prefs.Theme(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, themeBody{Theme: theme})
}

// SetTheme handles PUT /settings/theme
func (h *SettingsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.prefs.SetTheme(r.Context(), body.Theme); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}
