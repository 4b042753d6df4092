package kv

import (
	"context"
	"fmt"

	"threadx/internal/config"
	"threadx/internal/database"
	"threadx/internal/logger"
	redisclient "threadx/internal/redis"
)

// Open builds the backend selected by cfg.KVBackend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.KVBackend {
	case config.BackendMemory:
		return NewMemoryBackend(), nil

	case config.BackendRedis:
		client, err := redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b := NewRedisBackend(client, cfg.KVNamespace)
		b.owned = true
		return b, nil

	case config.BackendBadger:
		log := logger.New("Badger")
		bc := DefaultBadgerConfig(cfg.BadgerPath)
		bc.Logger = &log
		return OpenBadger(bc)

	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.Connect(cfg.KVBackend, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewSQLBackend(db), nil
	}
	return nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
}
