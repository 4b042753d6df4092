// Package session holds the explicitly passed "who is signed in" state.
package session

import (
	"sync"

	"threadx/internal/model"
)

// Session is one signed-in view. The zero value is anonymous.
// It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	user  *model.User
	token string
}

func New() *Session {
	return &Session{}
}

// For returns an authenticated session, mainly for tests and request scoping.
func For(user model.User, token string) *Session {
	s := New()
	s.Set(user, token)
	return s
}

// User returns a copy of the signed-in user.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// UserID returns "" for an anonymous session.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.UserID() != ""
}

func (s *Session) Set(user model.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.token = token
}

// Clear makes the session anonymous. Idempotent.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
}
