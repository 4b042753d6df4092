package repository

import (
	"context"

	"threadx/internal/model"
)

// Repositories read and write whole collections through the kv store.
// They never lock; services group several calls with Store.Atomically.

type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	// FindByIdentifier matches username or email, case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	// UsernameTaken and EmailTaken ignore the user with excludeID.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user model.User) error
	Update(ctx context.Context, user model.User) error
	Upsert(ctx context.Context, user model.User) error
	Delete(ctx context.Context, id string) error
}

type CredentialRepository interface {
	Get(ctx context.Context, userID string) (hash string, ok bool, err error)
	Set(ctx context.Context, userID, hash string) error
	Delete(ctx context.Context, userID string) error
}

type FollowRepository interface {
	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
	SetFollowers(ctx context.Context, userID string, ids []string) error
	SetFollowing(ctx context.Context, userID string, ids []string) error
	// Owners lists users that have a stored followers or following set.
	Owners(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, userID string) error
}

type ThreadRepository interface {
	// List returns the stored collection in stored order.
	List(ctx context.Context) ([]model.Thread, error)
	SaveAll(ctx context.Context, threads []model.Thread) error
}

// ReactionKind names a per-user reaction set.
type ReactionKind string

const (
	ReactionLike   ReactionKind = "like"
	ReactionRepost ReactionKind = "repost"
)

type ReactionRepository interface {
	// ThreadIDs returns the threads userID has reacted to with kind.
	ThreadIDs(ctx context.Context, kind ReactionKind, userID string) ([]string, error)
	SetThreadIDs(ctx context.Context, kind ReactionKind, userID string, threadIDs []string) error
	Owners(ctx context.Context, kind ReactionKind) ([]string, error)
	Delete(ctx context.Context, userID string) error
}

type AlertRepository interface {
	List(ctx context.Context, recipientID string) ([]model.Alert, error)
	// Save truncates to model.MaxAlerts, keeping the head of the slice.
	Save(ctx context.Context, recipientID string, alerts []model.Alert) error
	Delete(ctx context.Context, recipientID string) error
}

type PreferenceRepository interface {
	Theme(ctx context.Context) (model.Theme, error)
	SetTheme(ctx context.Context, theme model.Theme) error
	RecentSearches(ctx context.Context) ([]model.RecentSearch, error)
	// SaveRecentSearches truncates to model.MaxRecentSearches.
	SaveRecentSearches(ctx context.Context, searches []model.RecentSearch) error
}

type SessionRepository interface {
	Load(ctx context.Context) (user *model.User, token string, err error)
	Save(ctx context.Context, user model.User, token string) error
	Clear(ctx context.Context) error
}
