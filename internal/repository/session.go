package repository

import (
	"context"
	"fmt"

	"threadx/internal/kv"
	"threadx/internal/model"
)

// The installation's live session: the user record under threadx_user and
// the raw token under threadx_token.
type sessionRepository struct {
	store *kv.Store
}

func NewSessionRepository(store *kv.Store) SessionRepository {
	return &sessionRepository{store: store}
}

// Load returns a nil user when no session is stored or the stored record
// is unreadable.
func (r *sessionRepository) Load(ctx context.Context) (*model.User, string, error) {
	user, err := kv.Get[*model.User](ctx, r.store, kv.KeySessionUser, nil)
	if err != nil {
		return nil, "", fmt.Errorf("load session user: %w", err)
	}
	token, _, err := r.store.GetString(ctx, kv.KeySessionToken)
	if err != nil {
		return nil, "", fmt.Errorf("load session token: %w", err)
	}
	if user == nil || user.ID == "" {
		return nil, "", nil
	}
	return user, token, nil
}

func (r *sessionRepository) Save(ctx context.Context, user model.User, token string) error {
	if err := r.store.Set(ctx, kv.KeySessionUser, user); err != nil {
		return fmt.Errorf("save session user: %w", err)
	}
	if err := r.store.SetString(ctx, kv.KeySessionToken, token); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, kv.KeySessionUser); err != nil {
		return err
	}
	return r.store.Remove(ctx, kv.KeySessionToken)
}
