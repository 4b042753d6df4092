package service

import (
	"threadx/internal/repository"
	"threadx/internal/session"
)

// Services is every store-facing service over one set of repositories.
type Services struct {
	Identity      *IdentityService
	Follows       *FollowService
	Threads       *ThreadService
	Notifications *NotificationService
	Preferences   *PreferenceService
	Search        *SearchService
	Media         *MediaService
}

// NewServices wires the services together. objects may be nil, in which
// case avatars are stored inline.
func NewServices(repos *repository.Repositories, tokens *session.Tokens, objects ObjectStore, opts ...IdentityOption) *Services {
	identity := NewIdentityService(repos, tokens, opts...)
	alerts := NewNotificationService(repos)
	prefs := NewPreferenceService(repos)
	return &Services{
		Identity:      identity,
		Follows:       NewFollowService(repos, alerts),
		Threads:       NewThreadService(repos, alerts),
		Notifications: alerts,
		Preferences:   prefs,
		Search:        NewSearchService(repos, prefs, alerts),
		Media:         NewMediaService(objects, identity),
	}
}
