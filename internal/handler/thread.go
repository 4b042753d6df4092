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

type ThreadHandler struct {
	threads *service.ThreadService
	log     zerolog.Logger
}

func NewThreadHandler(threads *service.ThreadService) *ThreadHandler {
	return &ThreadHandler{
		threads: threads,
		log:     logger.New("ThreadHandler"),
	}
}

// ThreadListResponse is a timeline tab.
type ThreadListResponse struct {
	Threads []model.Thread `json:"threads"`
}

// List handles GET /threads?q=&category=all|my|following|trending
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	threads, err := h.threads.List(r.Context(), viewer.ID, q.Get("q"), model.Category(q.Get("category")))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ThreadListResponse{Threads: threads})
}

// Create handles POST /threads
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, author, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.CreateThreadRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	thread, err := h.threads.CreateThread(r.Context(), author, req)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, thread)
}

// GetByID handles GET /threads/{id}
func (h *ThreadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	thread, err := h.threads.GetThread(r.Context(), viewer.ID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thread)
}

// Delete handles DELETE /threads/{id}
func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.threads.DeleteThread(r.Context(), chi.URLParam(r, "id"), viewer.ID); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /threads/{id}/like. It toggles.
func (h *ThreadHandler) Like(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	thread, err := h.threads.LikeThread(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thread)
}

// Repost handles POST /threads/{id}/repost. It toggles.
func (h *ThreadHandler) Repost(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	thread, err := h.threads.RepostThread(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thread)
}

// TogglePrivacy handles POST /threads/{id}/privacy
func (h *ThreadHandler) TogglePrivacy(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	thread, err := h.threads.TogglePrivacy(r.Context(), chi.URLParam(r, "id"), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thread)
}
