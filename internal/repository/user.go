package repository

import (
	"context"
	"errors"
	"fmt"

	"threadx/internal/kv"
	"threadx/internal/model"
)

type userRepository struct {
	store *kv.Store
}

func NewUserRepository(store *kv.Store) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	users, err := kv.Get(ctx, r.store, kv.KeyUsers, []model.User{})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	key := model.Fold(identifier)
	if key == "" {
		return nil, model.ErrUserNotFound
	}
	for i := range users {
		if model.Fold(users[i].Username) == key || model.Fold(users[i].Email) == key {
			return &users[i], nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *userRepository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return r.taken(ctx, excludeID, func(u model.User) bool {
		return model.Fold(u.Username) == model.Fold(username)
	})
}

func (r *userRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.taken(ctx, excludeID, func(u model.User) bool {
		return model.Fold(u.Email) == model.Fold(email)
	})
}

func (r *userRepository) taken(ctx context.Context, excludeID string, match func(model.User) bool) (bool, error) {
	users, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID != excludeID && match(u) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepository) Create(ctx context.Context, user model.User) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID == user.ID {
			return fmt.Errorf("user id %s: %w", user.ID, model.ErrConflict)
		}
	}
	return r.save(ctx, append(users, user))
}

func (r *userRepository) Update(ctx context.Context, user model.User) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = user
			return r.save(ctx, users)
		}
	}
	return model.ErrUserNotFound
}

func (r *userRepository) Upsert(ctx context.Context, user model.User) error {
	err := r.Update(ctx, user)
	if errors.Is(err, model.ErrUserNotFound) {
		return r.Create(ctx, user)
	}
	return err
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	return r.save(ctx, kept)
}

func (r *userRepository) save(ctx context.Context, users []model.User) error {
	if err := r.store.Set(ctx, kv.KeyUsers, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
