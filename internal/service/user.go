package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/repository"
	"threadx/internal/session"
)

// IdentityService manages user records, credentials and sessions.
type IdentityService struct {
	store      *kv.Store
	repos      *repository.Repositories
	tokens     *session.Tokens
	validate   *validator.Validate
	avatarBase string
	bcryptCost int
	log        zerolog.Logger
	now        func() time.Time
}

// IdentityOption customizes an IdentityService.
type IdentityOption func(*IdentityService)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) IdentityOption {
	return func(s *IdentityService) { s.bcryptCost = cost }
}

// WithAvatarBaseURL sets the generated-avatar URL; the username is appended.
func WithAvatarBaseURL(base string) IdentityOption {
	return func(s *IdentityService) { s.avatarBase = base }
}

func NewIdentityService(repos *repository.Repositories, tokens *session.Tokens, opts ...IdentityOption) *IdentityService {
	s := &IdentityService{
		store:      repos.Store,
		repos:      repos,
		tokens:     tokens,
		validate:   newValidator(),
		avatarBase: "https://ui-avatars.com/api/?background=FF6B6B&color=fff&name=",
		bcryptCost: bcrypt.DefaultCost,
		log:        logger.New("IdentityService"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account, stores its credential and signs it in.
func (s *IdentityService) Register(ctx context.Context, sess *session.Session, req model.RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validate.Struct(req); err != nil {
		return nil, fieldError(err, "")
	}
	if _, ok := demoAccount(req.Username); ok {
		return nil, model.ErrUsernameTaken
	}
	if _, ok := demoAccount(req.Email); ok {
		return nil, model.ErrEmailTaken
	}

	now := s.now()
	user := model.User{
		ID:           model.NewID(),
		Username:     req.Username,
		Email:        req.Email,
		Bio:          model.DefaultBio,
		Location:     req.Location,
		ProfileImage: s.avatarBase + url.QueryEscape(req.Username),
		JoinDate:     now,
	}

	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		taken, err := s.repos.Users.UsernameTaken(ctx, user.Username, "")
		if err != nil {
			return err
		}
		if taken {
			return model.ErrUsernameTaken
		}
		taken, err = s.repos.Users.EmailTaken(ctx, user.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return model.ErrEmailTaken
		}

		if err := s.setPassword(ctx, user.ID, req.Password); err != nil {
			return err
		}
		if err := s.repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return s.establish(ctx, sess, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("registered")
	return &user, nil
}

// GetUser resolves a user id against the user collection.
func (s *IdentityService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repos.Users.GetByID(ctx, id)
}

// UpdateProfile merges patch into the session user and writes it to the
// user collection. Threads keep the author fields they were created with.
func (s *IdentityService) UpdateProfile(ctx context.Context, sess *session.Session, patch model.ProfilePatch) (*model.User, error) {
	userID := sess.UserID()
	if userID == "" {
		s.log.Warn().Msg("profile update without a session ignored")
		return nil, model.ErrNoSession
	}
	trim(patch.Username)
	trim(patch.Email)
	trim(patch.Location)
	if err := s.validate.Struct(patch); err != nil {
		return nil, fieldError(err, "")
	}

	var updated model.User
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		current, err := s.repos.Users.GetByID(ctx, userID)
		if errors.Is(err, model.ErrUserNotFound) {
			// the collection may predate the session (demo accounts)
			u, _ := sess.User()
			current, err = &u, nil
		}
		if err != nil {
			return err
		}
		u := *current

		if patch.Username != nil && model.Fold(*patch.Username) != model.Fold(u.Username) {
			if err := s.checkUnique(ctx, *patch.Username, "", userID); err != nil {
				return err
			}
		}
		if patch.Email != nil && model.Fold(*patch.Email) != model.Fold(u.Email) {
			if err := s.checkUnique(ctx, "", *patch.Email, userID); err != nil {
				return err
			}
		}
		applyPatch(&u, patch)
		now := s.now()
		u.UpdatedAt = &now

		if err := s.repos.Users.Upsert(ctx, u); err != nil {
			return err
		}
		if err := s.refreshPersistedSession(ctx, u); err != nil {
			return err
		}
		sess.Set(u, sess.Token())
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("user_id", userID).Msg("profile updated")
	return &updated, nil
}

// refreshPersistedSession keeps threadx_user in step with the collection
// when u is the installation's signed-in user.
func (s *IdentityService) refreshPersistedSession(ctx context.Context, u model.User) error {
	stored, token, err := s.repos.Sessions.Load(ctx)
	if err != nil || stored == nil || stored.ID != u.ID {
		return err
	}
	return s.repos.Sessions.Save(ctx, u, token)
}

// clearPersistedSession drops threadx_user/threadx_token when they belong
// to userID, or unconditionally when userID is empty.
func (s *IdentityService) clearPersistedSession(ctx context.Context, userID string) error {
	if userID != "" {
		stored, _, err := s.repos.Sessions.Load(ctx)
		if err != nil {
			return err
		}
		if stored != nil && stored.ID != userID {
			return nil
		}
	}
	return s.repos.Sessions.Clear(ctx)
}

func (s *IdentityService) checkUnique(ctx context.Context, username, email, excludeID string) error {
	if username != "" {
		if _, ok := demoAccount(username); ok {
			return model.ErrUsernameTaken
		}
		taken, err := s.repos.Users.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrUsernameTaken
		}
	}
	if email != "" {
		if _, ok := demoAccount(email); ok {
			return model.ErrEmailTaken
		}
		taken, err := s.repos.Users.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrEmailTaken
		}
	}
	return nil
}

func applyPatch(u *model.User, p model.ProfilePatch) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// VerifyPassword checks candidate against the session user's credential.
func (s *IdentityService) VerifyPassword(ctx context.Context, sess *session.Session, candidate string) (bool, error) {
	userID := sess.UserID()
	if userID == "" {
		return false, model.ErrNoSession
	}
	if IsDemoUser(userID) {
		return candidate == DemoPassword, nil
	}
	stored, ok, err := s.repos.Credentials.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, model.ErrMissingCredential
	}
	match, _ := checkPassword(stored, candidate)
	return match, nil
}

// IsPasswordDifferent reports whether candidate differs from the stored password.
func (s *IdentityService) IsPasswordDifferent(ctx context.Context, sess *session.Session, candidate string) (bool, error) {
	same, err := s.VerifyPassword(ctx, sess, candidate)
	if err != nil {
		return false, err
	}
	return !same, nil
}

// ChangePassword replaces the session user's credential.
func (s *IdentityService) ChangePassword(ctx context.Context, sess *session.Session, newPassword string) (bool, error) {
	userID := sess.UserID()
	if userID == "" {
		return false, model.ErrNoSession
	}
	if IsDemoUser(userID) {
		return false, model.ErrDemoAccountReadOnly
	}
	if len([]rune(newPassword)) < model.MinPasswordLength {
		return false, model.NewValidationError("newPassword", "must be at least 6 characters")
	}
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		return s.setPassword(ctx, userID, newPassword)
	})
	if err != nil {
		return false, err
	}
	s.log.Info().Str("user_id", userID).Msg("password changed")
	return true, nil
}

// UpdatePassword runs the settings-page form: the current password must
// match, the new one must be long enough, confirmed and different.
func (s *IdentityService) UpdatePassword(ctx context.Context, sess *session.Session, req model.ChangePasswordRequest) error {
	ok, err := s.VerifyPassword(ctx, sess, req.CurrentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewValidationError("currentPassword", "current password is incorrect")
	}
	if len([]rune(req.NewPassword)) < model.MinPasswordLength {
		return model.NewValidationError("newPassword", "must be at least 6 characters")
	}
	if req.NewPassword != req.ConfirmPassword {
		return model.NewValidationError("confirmPassword", "passwords do not match")
	}
	different, err := s.IsPasswordDifferent(ctx, sess, req.NewPassword)
	if err != nil {
		return err
	}
	if !different {
		return model.NewValidationError("newPassword", "must differ from the current password")
	}
	_, err = s.ChangePassword(ctx, sess, req.NewPassword)
	return err
}

// DeleteAccount removes the session user and everything keyed by them,
// including their edges in other users' follow sets and their reactions.
// Comments they left on other users' threads stay.
func (s *IdentityService) DeleteAccount(ctx context.Context, sess *session.Session, userID string) error {
	current := sess.UserID()
	if current == "" {
		return model.ErrNoSession
	}
	if current != userID {
		return model.ErrNotAccountOwner
	}

	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if err := s.deleteThreadsAndReactions(ctx, userID); err != nil {
			return err
		}
		if err := s.detachFollowEdges(ctx, userID); err != nil {
			return err
		}
		for _, key := range kv.UserScopedKeys(userID) {
			if err := s.store.Remove(ctx, key); err != nil {
				return err
			}
		}
		if err := s.dropRecentSearch(ctx, userID); err != nil {
			return err
		}
		if err := s.repos.Users.Delete(ctx, userID); err != nil {
			return err
		}
		return s.clearPersistedSession(ctx, userID)
	})
	if err != nil {
		return err
	}
	sess.Clear()

	s.log.Info().Str("user_id", userID).Msg("account deleted")
	return nil
}

// deleteThreadsAndReactions drops the user's threads and undoes the
// user's likes and reposts on everybody else's.
func (s *IdentityService) deleteThreadsAndReactions(ctx context.Context, userID string) error {
	threads, err := s.repos.Threads.List(ctx)
	if err != nil {
		return err
	}
	liked, err := s.repos.Reactions.ThreadIDs(ctx, repository.ReactionLike, userID)
	if err != nil {
		return err
	}
	reposted, err := s.repos.Reactions.ThreadIDs(ctx, repository.ReactionRepost, userID)
	if err != nil {
		return err
	}

	removed := make(map[string]struct{})
	kept := make([]model.Thread, 0, len(threads))
	for _, t := range threads {
		if t.UserID == userID {
			removed[t.ID] = struct{}{}
			continue
		}
		if contains(liked, t.ID) && t.Likes > 0 {
			t.Likes--
		}
		if contains(reposted, t.ID) && t.Reposts > 0 {
			t.Reposts--
		}
		kept = append(kept, t)
	}
	if err := s.repos.Threads.SaveAll(ctx, kept); err != nil {
		return err
	}
	return pruneReactions(ctx, s.repos.Reactions, removed)
}

func (s *IdentityService) detachFollowEdges(ctx context.Context, userID string) error {
	owners, err := s.repos.Follows.Owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		if owner == userID {
			continue
		}
		followers, err := s.repos.Follows.Followers(ctx, owner)
		if err != nil {
			return err
		}
		if contains(followers, userID) {
			if err := s.repos.Follows.SetFollowers(ctx, owner, without(followers, userID)); err != nil {
				return err
			}
		}
		following, err := s.repos.Follows.Following(ctx, owner)
		if err != nil {
			return err
		}
		if contains(following, userID) {
			if err := s.repos.Follows.SetFollowing(ctx, owner, without(following, userID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *IdentityService) dropRecentSearch(ctx context.Context, userID string) error {
	searches, err := s.repos.Preferences.RecentSearches(ctx)
	if err != nil {
		return err
	}
	kept := searches[:0]
	for _, rs := range searches {
		if rs.ID != userID {
			kept = append(kept, rs)
		}
	}
	if len(kept) == len(searches) {
		return nil
	}
	return s.repos.Preferences.SaveRecentSearches(ctx, kept)
}

// pruneReactions removes deleted thread ids from every reaction set.
func pruneReactions(ctx context.Context, reactions repository.ReactionRepository, removed map[string]struct{}) error {
	if len(removed) == 0 {
		return nil
	}
	for _, kind := range []repository.ReactionKind{repository.ReactionLike, repository.ReactionRepost} {
		owners, err := reactions.Owners(ctx, kind)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			ids, err := reactions.ThreadIDs(ctx, kind, owner)
			if err != nil {
				return err
			}
			kept := make([]string, 0, len(ids))
			for _, id := range ids {
				if _, gone := removed[id]; !gone {
					kept = append(kept, id)
				}
			}
			if len(kept) != len(ids) {
				if err := reactions.SetThreadIDs(ctx, kind, owner, kept); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
