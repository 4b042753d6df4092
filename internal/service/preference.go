package service

import (
	"context"
	"time"

	"threadx/internal/kv"
	"threadx/internal/model"
	"threadx/internal/repository"
)

// PreferenceService holds device-level settings: the theme and the list
// of recently viewed profiles.
type PreferenceService struct {
	store *kv.Store
	prefs repository.PreferenceRepository
	now   func() time.Time
}

func NewPreferenceService(repos *repository.Repositories) *PreferenceService {
	return &PreferenceService{store: repos.Store, prefs: repos.Preferences, now: time.Now}
}

func (s *PreferenceService) Theme(ctx context.Context) (model.Theme, error) {
	return s.prefs.Theme(ctx)
}

func (s *PreferenceService) SetTheme(ctx context.Context, theme model.Theme) error {
	if theme != model.ThemeLight && theme != model.ThemeDark {
		return model.ErrInvalidTheme
	}
	return s.prefs.SetTheme(ctx, theme)
}

func (s *PreferenceService) RecentSearches(ctx context.Context) ([]model.RecentSearch, error) {
	return s.prefs.RecentSearches(ctx)
}

// RecordRecentSearch moves user to the front of the list, dropping any
// older entry for the same user and anything past the cap.
func (s *PreferenceService) RecordRecentSearch(ctx context.Context, user model.User) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		searches, err := s.prefs.RecentSearches(ctx)
		if err != nil {
			return err
		}
		entry := model.RecentSearch{
			ID:           user.ID,
			Username:     user.Username,
			ProfileImage: user.ProfileImage,
			ViewedAt:     s.now(),
		}
		next := []model.RecentSearch{entry}
		for _, rs := range searches {
			if rs.ID != user.ID {
				next = append(next, rs)
			}
		}
		return s.prefs.SaveRecentSearches(ctx, next)
	})
}

func (s *PreferenceService) RemoveRecentSearch(ctx context.Context, userID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		searches, err := s.prefs.RecentSearches(ctx)
		if err != nil {
			return err
		}
		next := make([]model.RecentSearch, 0, len(searches))
		for _, rs := range searches {
			if rs.ID != userID {
				next = append(next, rs)
			}
		}
		return s.prefs.SaveRecentSearches(ctx, next)
	})
}

func (s *PreferenceService) ClearRecentSearches(ctx context.Context) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		return s.prefs.SaveRecentSearches(ctx, []model.RecentSearch{})
	})
}
