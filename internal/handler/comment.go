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

type CommentHandler struct {
	threads *service.ThreadService
	log     zerolog.Logger
}

func NewCommentHandler(threads *service.ThreadService) *CommentHandler {
	return &CommentHandler{
		threads: threads,
		log:     logger.New("CommentHandler"),
	}
}

// Create handles POST /threads/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, author, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.ContentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	comment, err := h.threads.AddComment(r.Context(), author, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /threads/{id}/comments/{commentId}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	err := h.threads.DeleteComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reply handles POST /threads/{id}/comments/{commentId}/replies
func (h *CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	_, author, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req model.ContentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	reply, err := h.threads.AddReply(r.Context(), author, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), req.Content)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reply)
}

// DeleteReply handles DELETE /threads/{id}/comments/{commentId}/replies/{replyId}
func (h *CommentHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}

	err := h.threads.DeleteReply(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentId"),
		chi.URLParam(r, "replyId"), viewer.ID)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
