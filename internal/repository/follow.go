package repository

import (
	"context"
	"fmt"
	"strings"

	"threadx/internal/kv"
)

// Follow edges are stored twice: following_<follower> and
// followers_<followee>. Keeping both sides equal is the service's job.
type followRepository struct {
	store *kv.Store
}

func NewFollowRepository(store *kv.Store) FollowRepository {
	return &followRepository{store: store}
}

func (r *followRepository) Followers(ctx context.Context, userID string) ([]string, error) {
	ids, err := kv.Get(ctx, r.store, kv.FollowersKey(userID), []string{})
	if err != nil {
		return nil, fmt.Errorf("load followers of %s: %w", userID, err)
	}
	return ids, nil
}

func (r *followRepository) Following(ctx context.Context, userID string) ([]string, error) {
	ids, err := kv.Get(ctx, r.store, kv.FollowingKey(userID), []string{})
	if err != nil {
		return nil, fmt.Errorf("load following of %s: %w", userID, err)
	}
	return ids, nil
}

func (r *followRepository) SetFollowers(ctx context.Context, userID string, ids []string) error {
	if err := r.store.Set(ctx, kv.FollowersKey(userID), ids); err != nil {
		return fmt.Errorf("save followers of %s: %w", userID, err)
	}
	return nil
}

func (r *followRepository) SetFollowing(ctx context.Context, userID string, ids []string) error {
	if err := r.store.Set(ctx, kv.FollowingKey(userID), ids); err != nil {
		return fmt.Errorf("save following of %s: %w", userID, err)
	}
	return nil
}

func (r *followRepository) Owners(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	owners := make([]string, 0)
	for _, prefix := range []string{kv.PrefixFollowers, kv.PrefixFollowing} {
		keys, err := r.store.Keys(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list %s keys: %w", prefix, err)
		}
		for _, k := range keys {
			id := strings.TrimPrefix(k, prefix)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			owners = append(owners, id)
		}
	}
	return owners, nil
}

func (r *followRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Remove(ctx, kv.FollowersKey(userID)); err != nil {
		return err
	}
	return r.store.Remove(ctx, kv.FollowingKey(userID))
}
