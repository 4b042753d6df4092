package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"threadx/internal/cache"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/queue"
	"threadx/internal/realtime"
	redisclient "threadx/internal/redis"
	"threadx/internal/session"
	transporthttp "threadx/internal/transport/http"
	"threadx/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge and the change worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	log := logger.New("Serve")

	user, err := a.svcs.Identity.Restore(ctx, session.New())
	switch {
	case err == nil:
		log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("restored session")
	case errors.Is(err, model.ErrNoSession):
		log.Info().Msg("no stored session")
	default:
		return err
	}

	hub := realtime.NewHub()
	defer hub.Close()
	// changes made by this process reach local views directly
	a.store.OnChange(hub.Listener(a.cfg.InstanceID))

	g, gctx := errgroup.WithContext(ctx)

	var changes cache.ChangeLog
	if a.cfg.ChangeStreamEnabled {
		client, err := redisclient.Connect(ctx, a.cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		changeLog := cache.NewChangeLog(client, a.cfg.KVNamespace)
		changes = changeLog

		relay := queue.NewRelay(queue.NewPublisher(client), a.cfg.InstanceID, queue.DefaultRelayBuffer)
		a.store.OnChange(relay.Listener())

		handler := worker.NewHandler(hub, a.cfg.InstanceID)
		handler.SetChangeLog(changeLog)
		mcfg := worker.DefaultManagerConfig(a.cfg.InstanceID)
		mcfg.WorkerCount = a.cfg.WorkerCount
		manager := worker.NewManager(queue.NewConsumer(client), handler, mcfg)

		g.Go(func() error { return relay.Run(gctx) })
		g.Go(func() error { return manager.Run(gctx) })
		log.Info().Str("instance", a.cfg.InstanceID).Int("workers", mcfg.WorkerCount).Msg("change stream enabled")
	}

	router := transporthttp.NewRouter(transporthttp.NewRouterConfig(a.cfg, a.svcs, hub, changes, logger.New("HTTP")))
	server := transporthttp.NewServer(a.cfg.ServerPort, router)
	g.Go(func() error { return server.Run(gctx) })

	log.Info().Str("backend", a.cfg.KVBackend).Str("port", a.cfg.ServerPort).Msg("threadx started")
	return g.Wait()
}
