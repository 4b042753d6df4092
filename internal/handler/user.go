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

type UserHandler struct {
	search  *service.SearchService
	follows *service.FollowService
	threads *service.ThreadService
	log     zerolog.Logger
}

func NewUserHandler(search *service.SearchService, follows *service.FollowService, threads *service.ThreadService) *UserHandler {
	return &UserHandler{
		search:  search,
		follows: follows,
		threads: threads,
		log:     logger.New("UserHandler"),
	}
}

// ProfileResponse is a profile page: the user, counters and whether the
// viewer follows them.
type ProfileResponse struct {
	User        *model.User        `json:"user"`
	Stats       model.ProfileStats `json:"stats"`
	IsFollowing bool               `json:"isFollowing"`
	IsMe        bool               `json:"isMe"`
}

// Search handles GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	users, err := h.search.SearchUsers(r.Context(), viewer.ID, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetProfile handles GET /users/{id}. Opening another user's profile is
// remembered in recent searches and notifies them.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")

	user, err := h.search.ViewProfile(r.Context(), viewer, targetID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	stats, err := h.follows.Stats(r.Context(), targetID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	following, err := h.follows.IsFollowing(r.Context(), viewer.ID, targetID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ProfileResponse{
		User:        user,
		Stats:       stats,
		IsFollowing: following,
		IsMe:        viewer.ID == targetID,
	})
}

// Threads handles GET /users/{id}/threads
func (h *UserHandler) Threads(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	threads, err := h.threads.UserThreads(r.Context(), viewer.ID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}
