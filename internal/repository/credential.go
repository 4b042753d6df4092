package repository

import (
	"context"
	"fmt"

	"threadx/internal/kv"
)

// Credentials are stored as raw strings under password_<id>, separate
// from the user record.
type credentialRepository struct {
	store *kv.Store
}

func NewCredentialRepository(store *kv.Store) CredentialRepository {
	return &credentialRepository{store: store}
}

func (r *credentialRepository) Get(ctx context.Context, userID string) (string, bool, error) {
	hash, ok, err := r.store.GetString(ctx, kv.PasswordKey(userID))
	if err != nil {
		return "", false, fmt.Errorf("load credential: %w", err)
	}
	if hash == "" {
		ok = false
	}
	return hash, ok, nil
}

func (r *credentialRepository) Set(ctx context.Context, userID, hash string) error {
	if err := r.store.SetString(ctx, kv.PasswordKey(userID), hash); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, userID string) error {
	return r.store.Remove(ctx, kv.PasswordKey(userID))
}
