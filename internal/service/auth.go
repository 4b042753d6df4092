package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"threadx/internal/model"
	"threadx/internal/session"
)

// DemoPassword opens both demo accounts. Demo accounts have no stored
// credential.
const DemoPassword = "password123"

var demoAccounts = []model.User{
	{
		ID:           "demo1",
		Username:     "demo_user",
		Email:        "demo@threadx.com",
		ProfileImage: "https://ui-avatars.com/api/?name=Demo+User&background=FF6B6B&color=fff",
		Bio:          "ThreadX demo user exploring the platform!",
		Location:     "Kerugoya",
	},
	{
		ID:           "dev1",
		Username:     "threadx_dev",
		Email:        "dev@threadx.com",
		ProfileImage: "https://ui-avatars.com/api/?name=ThreadX+Dev&background=1E1E2F&color=fff",
		Bio:          "Developer building amazing features for ThreadX!",
		Location:     "Nairobi",
	},
}

func demoAccount(identifier string) (model.User, bool) {
	key := model.Fold(identifier)
	for _, d := range demoAccounts {
		if model.Fold(d.Username) == key || model.Fold(d.Email) == key {
			return d, true
		}
	}
	return model.User{}, false
}

func demoByID(id string) (model.User, bool) {
	for _, d := range demoAccounts {
		if d.ID == id {
			return d, true
		}
	}
	return model.User{}, false
}

// IsDemoUser reports whether id belongs to a built-in demo account.
func IsDemoUser(id string) bool {
	_, ok := demoByID(id)
	return ok
}

// Login authenticates by username or email and establishes the session.
func (s *IdentityService) Login(ctx context.Context, sess *session.Session, req model.LoginRequest) (*model.User, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, model.NewValidationError("identifier", "is required")
	}
	if req.Password == "" {
		return nil, model.NewValidationError("password", "is required")
	}

	var user *model.User
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if demo, ok := demoAccount(identifier); ok {
			if req.Password != DemoPassword {
				return model.ErrInvalidCredential
			}
			u, err := s.ensureDemoUser(ctx, demo)
			if err != nil {
				return err
			}
			user = u
			return s.establish(ctx, sess, *user)
		}

		found, err := s.repos.Users.FindByIdentifier(ctx, identifier)
		if err != nil {
			return err
		}
		stored, ok, err := s.repos.Credentials.Get(ctx, found.ID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Error().Str("user_id", found.ID).Msg("user has no stored credential")
			return fmt.Errorf("user %s: %w", found.Username, model.ErrMissingCredential)
		}

		match, legacy := checkPassword(stored, req.Password)
		if !match {
			return model.ErrInvalidCredential
		}
		if legacy {
			if err := s.setPassword(ctx, found.ID, req.Password); err != nil {
				return err
			}
			s.log.Info().Str("user_id", found.ID).Msg("upgraded legacy credential")
		}
		user = found
		return s.establish(ctx, sess, *user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("login")
	return user, nil
}

// Logout clears the session and the persisted session pointer. Idempotent.
func (s *IdentityService) Logout(ctx context.Context, sess *session.Session) error {
	userID := sess.UserID()
	sess.Clear()
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		return s.clearPersistedSession(ctx, userID)
	})
}

// Restore loads the persisted session into sess. The user record is
// re-read from the user collection; a session for a deleted user or with
// an expired token is discarded.
func (s *IdentityService) Restore(ctx context.Context, sess *session.Session) (*model.User, error) {
	var user *model.User
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		stored, token, err := s.repos.Sessions.Load(ctx)
		if err != nil {
			return err
		}
		if stored == nil {
			return model.ErrNoSession
		}

		if _, err := s.tokens.Verify(token); err != nil {
			s.log.Info().Err(err).Str("user_id", stored.ID).Msg("discarding stored session")
			if err := s.repos.Sessions.Clear(ctx); err != nil {
				return err
			}
			return model.ErrNoSession
		}

		current, err := s.repos.Users.GetByID(ctx, stored.ID)
		if errors.Is(err, model.ErrUserNotFound) {
			if err := s.repos.Sessions.Clear(ctx); err != nil {
				return err
			}
			return model.ErrNoSession
		}
		if err != nil {
			return err
		}
		user = current
		sess.Set(*current, token)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate resolves a bearer token to a session. Only the token of the
// live installation session is accepted.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	stored, liveToken, err := s.repos.Sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.ID != userID ||
		subtle.ConstantTimeCompare([]byte(liveToken), []byte(token)) != 1 {
		return nil, model.ErrInvalidSession
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidSession
		}
		return nil, err
	}
	return session.For(*user, token), nil
}

// establish issues a token and makes user the live session.
func (s *IdentityService) establish(ctx context.Context, sess *session.Session, user model.User) error {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	if err := s.repos.Sessions.Save(ctx, user, token); err != nil {
		return err
	}
	sess.Set(user, token)
	return nil
}

// ensureDemoUser makes the demo account resolvable in the user collection,
// keeping any profile edits made earlier.
func (s *IdentityService) ensureDemoUser(ctx context.Context, demo model.User) (*model.User, error) {
	existing, err := s.repos.Users.GetByID(ctx, demo.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}
	demo.JoinDate = s.now()
	if err := s.repos.Users.Create(ctx, demo); err != nil {
		return nil, err
	}
	return &demo, nil
}

func (s *IdentityService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repos.Credentials.Set(ctx, userID, string(hash))
}

// checkPassword compares a candidate against a stored credential. Older
// installations stored plain text or an unsalted SHA-256 hex digest;
// legacy reports such a match so the caller can re-hash.
func checkPassword(stored, candidate string) (match bool, legacy bool) {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil, false
	}

	digest := sha256.Sum256([]byte(candidate))
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(hex.EncodeToString(digest[:]))) == 1 {
		return true, true
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, true
}
