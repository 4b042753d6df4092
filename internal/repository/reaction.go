package repository

import (
	"context"
	"fmt"
	"strings"

	"threadx/internal/kv"
)

// Reactions are per-user sets of thread ids, one key per user and kind.
type reactionRepository struct {
	store *kv.Store
}

func NewReactionRepository(store *kv.Store) ReactionRepository {
	return &reactionRepository{store: store}
}

func reactionPrefix(kind ReactionKind) string {
	if kind == ReactionRepost {
		return kv.PrefixReposts
	}
	return kv.PrefixLikes
}

func (r *reactionRepository) ThreadIDs(ctx context.Context, kind ReactionKind, userID string) ([]string, error) {
	ids, err := kv.Get(ctx, r.store, reactionPrefix(kind)+userID, []string{})
	if err != nil {
		return nil, fmt.Errorf("load %s set of %s: %w", kind, userID, err)
	}
	return ids, nil
}

func (r *reactionRepository) SetThreadIDs(ctx context.Context, kind ReactionKind, userID string, threadIDs []string) error {
	key := reactionPrefix(kind) + userID
	if len(threadIDs) == 0 {
		return r.store.Remove(ctx, key)
	}
	if err := r.store.Set(ctx, key, threadIDs); err != nil {
		return fmt.Errorf("save %s set of %s: %w", kind, userID, err)
	}
	return nil
}

func (r *reactionRepository) Owners(ctx context.Context, kind ReactionKind) ([]string, error) {
	prefix := reactionPrefix(kind)
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", kind, err)
	}
	owners := make([]string, 0, len(keys))
	for _, k := range keys {
		owners = append(owners, strings.TrimPrefix(k, prefix))
	}
	return owners, nil
}

func (r *reactionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Remove(ctx, kv.LikesKey(userID)); err != nil {
		return err
	}
	return r.store.Remove(ctx, kv.RepostsKey(userID))
}
