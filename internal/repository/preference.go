package repository

import (
	"context"
	"fmt"

	"threadx/internal/kv"
	"threadx/internal/model"
)

// Device-level preferences: theme and recent profile searches. They are
// not scoped to a user.
type preferenceRepository struct {
	store *kv.Store
}

func NewPreferenceRepository(store *kv.Store) PreferenceRepository {
	return &preferenceRepository{store: store}
}

func (r *preferenceRepository) Theme(ctx context.Context) (model.Theme, error) {
	v, ok, err := r.store.GetString(ctx, kv.KeyTheme)
	if err != nil {
		return model.ThemeLight, fmt.Errorf("load theme: %w", err)
	}
	if !ok || model.Theme(v) != model.ThemeDark {
		return model.ThemeLight, nil
	}
	return model.ThemeDark, nil
}

func (r *preferenceRepository) SetTheme(ctx context.Context, theme model.Theme) error {
	return r.store.SetString(ctx, kv.KeyTheme, string(theme))
}

func (r *preferenceRepository) RecentSearches(ctx context.Context) ([]model.RecentSearch, error) {
	searches, err := kv.Get(ctx, r.store, kv.KeyRecentSearches, []model.RecentSearch{})
	if err != nil {
		return nil, fmt.Errorf("load recent searches: %w", err)
	}
	return searches, nil
}

func (r *preferenceRepository) SaveRecentSearches(ctx context.Context, searches []model.RecentSearch) error {
	if len(searches) > model.MaxRecentSearches {
		searches = searches[:model.MaxRecentSearches]
	}
	if err := r.store.Set(ctx, kv.KeyRecentSearches, searches); err != nil {
		return fmt.Errorf("save recent searches: %w", err)
	}
	return nil
}
