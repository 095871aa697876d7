package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/questline/internal/config"
	"github.com/metalagman/questline/internal/db"
	"github.com/metalagman/questline/internal/progress"
	"github.com/metalagman/questline/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func openDB(cfg config.Config) (*db.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, func() {}, fmt.Errorf("create database dir: %w", err)
	}
	conn, err := db.OpenWithOptions(cfg.Database.Path, db.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return nil, func() {}, err
	}
	return db.NewStore(conn), func() { _ = conn.Close() }, nil
}

func initTelemetry(ctx context.Context, cfg config.Config) (func(), error) {
	opts := telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: "questline",
		Version:     version,
	}
	if cfg.Telemetry.Stdout {
		opts.Writer = os.Stdout
	}
	if err := telemetry.Init(ctx, opts); err != nil {
		return func() {}, err
	}
	return func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}, nil
}

// app bundles what a one-shot command needs.
type app struct {
	cfg    config.Config
	store  *db.Store
	engine *progress.Engine
	close  func()
}

func (a *app) user() string {
	return a.cfg.User
}

func openApp(ctx context.Context) (*app, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	stopTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, closeDB, err := openDB(cfg)
	if err != nil {
		stopTelemetry()
		return nil, err
	}
	return &app{
		cfg:    cfg,
		store:  store,
		engine: progress.NewEngine(store),
		close: func() {
			closeDB()
			stopTelemetry()
		},
	}, nil
}
