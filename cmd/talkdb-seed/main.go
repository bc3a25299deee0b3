package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/talkdb/talkdb/internal/config"
	"github.com/talkdb/talkdb/internal/database/sqldb"
	"github.com/talkdb/talkdb/internal/demo/seed"
	"github.com/talkdb/talkdb/internal/observability"
	"github.com/talkdb/talkdb/internal/storage"
	s3store "github.com/talkdb/talkdb/internal/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("talkdb-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	seedCfg, err := seed.LoadConfig(cfg, os.LookupEnv)
	if err != nil {
		logger.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := sqldb.Open(ctx, sqldb.Config{URL: seedCfg.DatabaseURL, ReadOnly: false})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = handle.Close() }()

	var store storage.ObjectStore
	if seedCfg.ExportParquet {
		exportStore, err := s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("parquet export enabled", slog.String("location", exportStore.Location()))
		store = exportStore
	}

	service, err := seed.NewService(seedCfg, logger, handle.DB(), handle.Dialect(), store)
	if err != nil {
		logger.Error("failed to initialize seed service", slog.Any("error", err))
		os.Exit(1)
	}
	if err := service.Run(ctx); err != nil {
		logger.Error("seed run failed", slog.Any("error", err))
		_ = handle.Close()
		os.Exit(1)
	}
}
