package handler

import (
	"net/http"

	"threadx/internal/httputil"
	"threadx/internal/model"
	"threadx/internal/session"
	"threadx/internal/transport/http/middleware"
)

// currentSession returns the signed-in session or writes a 401.
func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, model.User, bool) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		if user, ok := sess.User(); ok {
			return sess, user, true
		}
	}
	httputil.WriteUnauthorized(w, "Authentication required")
	return nil, model.User{}, false
}

// messageResponse is the body of endpoints that have nothing else to return.
type messageResponse struct {
	Message string `json:"message"`
}
