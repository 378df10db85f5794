package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
	"pywr/internal/logging"
	"pywr/internal/runcache"
	"pywr/internal/runstore"
	"pywr/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a local HTTP API for submitting model runs and polling their results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(cfg.Log)
			log := logging.WithComponent("cmd.serve")

			cache, err := runcache.New(&runcache.Options{
				Backend:    cfg.Serve.Cache.Backend,
				DefaultTTL: cfg.Serve.Cache.TTL,
				RedisAddr:  cfg.Serve.Cache.Addr,
			})
			if err != nil {
				return apperror.Wrap(err, apperror.CodeBuildError, "init run cache")
			}

			var store *runstore.Store
			if cfg.Serve.Database.DSN != "" {
				pool, err := runstore.Connect(cmd.Context(), cfg.Serve.Database.DSN)
				if err != nil {
					return apperror.Wrap(err, apperror.CodeBuildError, "connect to run store database")
				}
				if err := runstore.Migrate(cmd.Context(), pool); err != nil {
					return apperror.Wrap(err, apperror.CodeBuildError, "migrate run store database")
				}
				store = runstore.NewStore(pool)
			} else {
				log.Warn("no serve.database.dsn configured; run results are not persisted across restarts")
			}

			auth := server.DefaultAuthConfig()
			if secret := os.Getenv("PYWR_SERVE_SECRET"); secret != "" {
				auth.SecretKey = secret
			} else {
				log.Warn("PYWR_SERVE_SECRET not set; run submission is unauthenticated")
			}

			srv := server.New(&cfg.Serve, store, cache, auth)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			return srv.Run(ctx)
		},
	}
}
