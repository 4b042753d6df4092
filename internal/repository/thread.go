package repository

import (
	"context"
	"fmt"

	"threadx/internal/kv"
	"threadx/internal/model"
)

// All threads live in one collection under threadx_threads.
type threadRepository struct {
	store *kv.Store
}

func NewThreadRepository(store *kv.Store) ThreadRepository {
	return &threadRepository{store: store}
}

func (r *threadRepository) List(ctx context.Context) ([]model.Thread, error) {
	threads, err := kv.Get(ctx, r.store, kv.KeyThreads, []model.Thread{})
	if err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	return threads, nil
}

func (r *threadRepository) SaveAll(ctx context.Context, threads []model.Thread) error {
	stored := make([]model.Thread, len(threads))
	copy(stored, threads)
	for i := range stored {
		// viewer-relative flags are never persisted
		stored[i].Liked = false
		stored[i].Reposted = false
	}
	if err := r.store.Set(ctx, kv.KeyThreads, stored); err != nil {
		return fmt.Errorf("save threads: %w", err)
	}
	return nil
}
