package main

import (
	"context"
	"fmt"

	"github.com/conduit-lang/boardstore/internal/config"
	"github.com/conduit-lang/boardstore/internal/datalayer"
	"github.com/conduit-lang/boardstore/internal/logging"
	"github.com/conduit-lang/boardstore/internal/signal"
	"github.com/conduit-lang/boardstore/internal/store"
	"github.com/conduit-lang/boardstore/internal/web/cache"
	"github.com/conduit-lang/boardstore/internal/web/middleware"
	"github.com/conduit-lang/boardstore/internal/web/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load metadata and serve the HTTP API and signal endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return a.shutdown.Run(cmd.Context())
		},
	}
}

// app is a wired boardstore instance
type app struct {
	dl       *datalayer.DataLayer
	server   *server.Server
	shutdown *server.GracefulShutdown
}

// build wires every component from cfg and loads the metadata
func build(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app, error) {
	pool := store.NewPool(store.DialerFor(store.MongoConfig{
		URI:     cfg.Database.URI,
		Prefix:  cfg.Database.Prefix,
		Timeout: cfg.Database.Timeout,
	}), log, store.WithKeepTime(cfg.Database.KeepTime))

	c, err := cache.NewLRUCache(cache.Config{Enabled: cfg.Cache.Enabled, Size: cfg.Cache.Size}, log)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	bus := signal.NewBus(signal.Config{Timeout: cfg.Signal.Timeout, Concurrency: cfg.Signal.Concurrency}, log)

	dl := datalayer.New(datalayer.Config{
		SystemDB: cfg.Database.System,
		Self:     cfg.Signal.Self,
		Peers:    cfg.Signal.Servers,
		Location: cfg.Location(),
	}, pool, c, bus, log)
	if err := dl.Start(ctx); err != nil {
		_ = pool.Close(ctx)
		return nil, err
	}

	identity := middleware.DefaultIdentityConfig()
	identity.Location = cfg.Location()
	router := server.NewRouter(server.RouterConfig{
		Store:    dl,
		Log:      log,
		Identity: identity,
		Extra:    []server.Mounter{bus},
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Server.Address()
	srv, err := server.New(srvCfg, router)
	if err != nil {
		_ = dl.Close(ctx)
		return nil, err
	}

	shutdown := server.NewGracefulShutdown(srv, server.DefaultShutdownConfig(), log)
	shutdown.RegisterHook(dl.Close)
	return &app{dl: dl, server: srv, shutdown: shutdown}, nil
}
