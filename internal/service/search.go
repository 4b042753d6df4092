package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/repository"
)

// SearchService finds users and records profile views.
type SearchService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	prefs   *PreferenceService
	alerts  alertPusher
	log     zerolog.Logger
}

func NewSearchService(repos *repository.Repositories, prefs *PreferenceService, alerts alertPusher) *SearchService {
	return &SearchService{
		users:   repos.Users,
		follows: repos.Follows,
		prefs:   prefs,
		alerts:  alerts,
		log:     logger.New("SearchService"),
	}
}

// SearchUsers matches query against usernames and emails, case
// insensitively, excluding the viewer. An empty query finds nobody.
func (s *SearchService) SearchUsers(ctx context.Context, viewerID, query string) ([]model.UserSummary, error) {
	q := model.Fold(query)
	if q == "" {
		return []model.UserSummary{}, nil
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.Following(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]model.UserSummary, 0)
	for _, u := range users {
		if u.ID == viewerID {
			continue
		}
		if strings.Contains(model.Fold(u.Username), q) || strings.Contains(model.Fold(u.Email), q) {
			sum := model.Summarize(u)
			sum.IsFollowing = contains(following, u.ID)
			out = append(out, sum)
		}
	}
	return out, nil
}

// ViewProfile opens targetID's profile for viewer: it is remembered in the
// recent searches and the target gets a profile_view alert. Demo accounts
// resolve to their built-in record until they first log in.
func (s *SearchService) ViewProfile(ctx context.Context, viewer model.User, targetID string) (*model.User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, model.ErrNotFound) {
		if demo, ok := demoByID(targetID); ok {
			target, err = &demo, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if target.ID == viewer.ID {
		return target, nil
	}
	if err := s.prefs.RecordRecentSearch(ctx, *target); err != nil {
		return nil, err
	}
	if s.alerts != nil {
		err := s.alerts.Push(ctx, target.ID, model.Alert{
			Type:          model.AlertProfileView,
			FromUserID:    viewer.ID,
			FromUsername:  viewer.Username,
			ActorImage:    viewer.ProfileImage,
			Content:       "viewed your profile",
			RelatedUserID: viewer.ID,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Str("recipient", target.ID).Msg("failed to push profile view alert")
		}
	}
	return target, nil
}
