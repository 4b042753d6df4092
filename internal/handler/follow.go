package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"threadx/internal/httputil"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/service"
)

type FollowHandler struct {
	follows *service.FollowService
	log     zerolog.Logger
}

func NewFollowHandler(follows *service.FollowService) *FollowHandler {
	return &FollowHandler{
		follows: follows,
		log:     logger.New("FollowHandler"),
	}
}

// UserListResponse is a list of users relative to the viewer.
type UserListResponse struct {
	Users []model.UserSummary `json:"users"`
}

// Follow handles POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.follows.Follow(r.Context(), viewer.ID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Successfully followed user"})
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.follows.Unfollow(r.Context(), viewer.ID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Successfully unfollowed user"})
}

// GetFollowers handles GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.GetFollowers)
}

// GetFollowing handles GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.GetFollowing)
}

// Suggestions handles GET /suggestions
func (h *FollowHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	users, err := h.follows.Suggestions(r.Context(), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, model.Summarize(u))
	}
	httputil.WriteJSON(w, http.StatusOK, UserListResponse{Users: out})
}

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, userID string) ([]model.User, error)) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	users, err := fetch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	following, err := h.follows.FollowingIDs(r.Context(), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		sum := model.Summarize(u)
		sum.IsFollowing = followed[u.ID]
		out = append(out, sum)
	}
	httputil.WriteJSON(w, http.StatusOK, UserListResponse{Users: out})
}
