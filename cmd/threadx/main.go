package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"threadx/internal/config"
	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/repository"
	"threadx/internal/service"
	"threadx/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "threadx",
	Short:         "ThreadX social network data service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newSeedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the store and services shared by every command.
type app struct {
	cfg   *config.Config
	store *kv.Store
	repos *repository.Repositories
	svcs  *service.Services
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogPretty); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	backend, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.KVBackend, err)
	}
	store := kv.NewStore(backend)

	var objects service.ObjectStore
	if cfg.MediaConfigured() {
		r2, err := service.NewR2Store(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, err
		}
		objects = r2
	}

	repos := repository.New(store)
	tokens := session.NewTokens(cfg.JWTSecret, time.Duration(cfg.SessionTokenMaxAge)*time.Second)
	svcs := service.NewServices(repos, tokens, objects, service.WithAvatarBaseURL(cfg.DefaultAvatarURL))
	return &app{cfg: cfg, store: store, repos: repos, svcs: svcs}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
