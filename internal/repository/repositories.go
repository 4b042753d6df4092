package repository

import "threadx/internal/kv"

// Repositories bundles every collection over one store.
type Repositories struct {
	Store       *kv.Store
	Users       UserRepository
	Credentials CredentialRepository
	Follows     FollowRepository
	Threads     ThreadRepository
	Reactions   ReactionRepository
	Alerts      AlertRepository
	Preferences PreferenceRepository
	Sessions    SessionRepository
}

func New(store *kv.Store) *Repositories {
	return &Repositories{
		Store:       store,
		Users:       NewUserRepository(store),
		Credentials: NewCredentialRepository(store),
		Follows:     NewFollowRepository(store),
		Threads:     NewThreadRepository(store),
		Reactions:   NewReactionRepository(store),
		Alerts:      NewAlertRepository(store),
		Preferences: NewPreferenceRepository(store),
		Sessions:    NewSessionRepository(store),
	}
}
