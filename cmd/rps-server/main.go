package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/MJE43/rps-gauntlet/internal/api"
	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/config"
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/scripting"
	"github.com/MJE43/rps-gauntlet/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rps-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	logger.Info().Str("go", runtime.Version()).Str("version", api.Version).Msg("starting rps gauntlet")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return multierr.Append(err, db.Close())
	}

	hub := api.NewHub(logger)
	svc, err := game.NewService(ctx, cat, db,
		game.WithLogger(logger),
		game.WithPublisher(hub),
	)
	if err != nil {
		return multierr.Append(fmt.Errorf("init game service: %w", err), db.Close())
	}

	srv := api.NewServer(svc, hub, logger)
	if _, err := srv.Start(cfg.Addr); err != nil {
		svc.Close()
		return multierr.Append(fmt.Errorf("listen on %s: %w", cfg.Addr, err), db.Close())
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	svc.Close()
	if err = multierr.Append(err, db.Close()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.DB, error) {
	var (
		db  store.DB
		err error
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err = store.NewPostgresDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info().Str("driver", cfg.DBDriver).Msg("store opened")
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err = store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info().Str("driver", cfg.DBDriver).Str("path", cfg.DBPath).Msg("store opened")
	}

	if err := db.Migrate(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate: %w", err), db.Close())
	}
	return db, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	opt := scripting.WithTimeout(cfg.ConditionTimeout)
	if cfg.LevelsFile != "" {
		cat, err := catalog.LoadFile(cfg.LevelsFile, opt)
		if err != nil {
			return nil, fmt.Errorf("load levels from %s: %w", cfg.LevelsFile, err)
		}
		return cat, nil
	}
	return catalog.Default(opt)
}
