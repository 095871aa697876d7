package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/questline/internal/config"
	"github.com/metalagman/questline/internal/db"
	"github.com/metalagman/questline/internal/logging"
	"github.com/metalagman/questline/internal/progress"
	"github.com/metalagman/questline/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and progress page",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serveModule wires the long-running server from a Config.
func serveModule(cfg config.Config) fx.Option {
	return fx.Options(
		fx.WithLogger(func() fxevent.Logger { return logging.FxLogger{} }),
		fx.Supply(cfg),
		fx.Provide(
			newDatabase,
			newStore,
			progress.NewEngine,
			newWebServer,
			newHTTPServer,
		),
		fx.Invoke(registerTelemetry),
	)
}

func newDatabase(lc fx.Lifecycle, cfg config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	conn, err := db.OpenWithOptions(cfg.Database.Path, db.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	return conn, nil
}

func newStore(conn *sql.DB) (*db.Store, progress.Repository) {
	store := db.NewStore(conn)
	return store, store
}

func newWebServer(engine *progress.Engine, store *db.Store) (*web.Server, error) {
	return web.NewServer(engine, store)
}

func newHTTPServer(cfg config.Config, srv *web.Server) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerTelemetry(lc fx.Lifecycle, cfg config.Config) {
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			stop, err = initTelemetry(ctx, cfg)
			return err
		},
		OnStop: func(context.Context) error {
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = config.Default().Server.ShutdownTimeout
	}
	var srv *http.Server
	app := fx.New(serveModule(cfg), fx.Populate(&srv))
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Warn().Err(err).Msg("stop")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("serving questline API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
