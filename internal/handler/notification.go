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

type NotificationHandler struct {
	alerts *service.NotificationService
	log    zerolog.Logger
}

func NewNotificationHandler(alerts *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		alerts: alerts,
		log:    logger.New("NotificationHandler"),
	}
}

// List handles GET /notifications?type=
// Returns the feed newest first with the unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	alerts, err := h.alerts.List(r.Context(), viewer.ID, model.AlertType(r.URL.Query().Get("type")))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	unread, err := h.alerts.UnreadCount(r.Context(), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.AlertListResponse{Alerts: alerts, UnreadCount: unread})
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	count, err := h.alerts.UnreadCount(r.Context(), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

// MarkRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.alerts.MarkRead(r.Context(), viewer.ID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.alerts.MarkAllRead(r.Context(), viewer.ID); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.alerts.Delete(r.Context(), viewer.ID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /notifications
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.alerts.ClearAll(r.Context(), viewer.ID); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
