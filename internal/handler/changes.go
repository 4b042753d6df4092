package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"threadx/internal/cache"
	"threadx/internal/httputil"
	"threadx/internal/logger"
)

const (
	defaultChangesLimit = 100
	maxChangesLimit     = cache.ChangeLogCap
)

// ChangesHandler lets a reconnecting view catch up on the keys it missed.
type ChangesHandler struct {
	changes cache.ChangeLog
	log     zerolog.Logger
}

// NewChangesHandler accepts a nil log; the endpoint then reports 503.
func NewChangesHandler(changes cache.ChangeLog) *ChangesHandler {
	return &ChangesHandler{changes: changes, log: logger.New("ChangesHandler")}
}

// ChangesResponse lists changed keys newest first. Cursor is the newest
// timestamp seen and can be passed back as since. Truncated means older
// changes were cut off and the view should reload everything.
type ChangesResponse struct {
	Changes   []cache.KeyChange `json:"changes"`
	Cursor    int64             `json:"cursor"`
	Truncated bool              `json:"truncated"`
}

// Since handles GET /changes?since=<unix ms>&limit=
func (h *ChangesHandler) Since(w http.ResponseWriter, r *http.Request) {
	_, viewer, ok := currentSession(w, r)
	if !ok {
		return
	}
	if h.changes == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.ErrCodeServiceUnavailable, "Change log is not enabled")
		return
	}

	q := r.URL.Query()
	var since int64
	if s := q.Get("since"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil || parsed < 0 {
			httputil.WriteBadRequest(w, "Invalid since parameter")
			return
		}
		since = parsed
	}
	limit := defaultChangesLimit
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = min(parsed, maxChangesLimit)
	}

	changes, err := h.changes.Since(r.Context(), viewer.ID, since, limit)
	if err != nil {
		httputil.WriteServiceError(w, h.log, err)
		return
	}
	resp := ChangesResponse{Changes: changes, Cursor: since, Truncated: len(changes) >= limit}
	if len(changes) > 0 {
		resp.Cursor = changes[0].Timestamp
	}
	if resp.Changes == nil {
		resp.Changes = []cache.KeyChange{}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
