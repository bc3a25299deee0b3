package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talkdb/talkdb/internal/agent"
	"github.com/talkdb/talkdb/internal/agent/sqlagent"
	"github.com/talkdb/talkdb/internal/agent/translate"
	"github.com/talkdb/talkdb/internal/api"
	"github.com/talkdb/talkdb/internal/api/uistatic"
	"github.com/talkdb/talkdb/internal/chat"
	"github.com/talkdb/talkdb/internal/config"
	"github.com/talkdb/talkdb/internal/database"
	"github.com/talkdb/talkdb/internal/database/sqldb"
	"github.com/talkdb/talkdb/internal/nl2sql"
	"github.com/talkdb/talkdb/internal/observability"
	"github.com/talkdb/talkdb/internal/share"
	s3store "github.com/talkdb/talkdb/internal/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("talkdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	handle, err := sqldb.Open(context.Background(), sqldb.Config{
		URL:             cfg.Database.URL,
		ReadOnly:        cfg.Database.ReadOnly,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		MaxRows:         cfg.Database.MaxRows,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = handle.Close() }()

	if cfg.Datasets.Enabled {
		if err := attachDatasets(context.Background(), cfg, handle, logger); err != nil {
			logger.Error("failed to attach datasets", slog.Any("error", err))
			os.Exit(1)
		}
	}

	answering, err := buildAgent(context.Background(), cfg, handle, logger)
	if err != nil {
		logger.Error("failed to initialize agent", slog.Any("error", err))
		os.Exit(1)
	}
	answering = agent.RateLimited(answering, cfg.AI.RateLimitRPS, cfg.AI.RateLimitBurst)

	gateway, err := chat.NewGateway(answering, chat.NewStore(), chat.GatewayConfig{
		FailureMessage: cfg.Chat.FailureMessage,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to initialize chat gateway", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:   logger,
		Gateway:  gateway,
		Database: handle,
		UI:       uistatic.Handler(),
		Readiness: []api.ReadinessCheck{
			api.CheckDatabase(handle),
			api.CheckObjectStoreConfig(cfg),
		},
		DependencyTimeout: 2 * time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.ListenAddress(),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		attrs := []any{
			slog.String("addr", server.Addr),
			slog.String("url", share.LocalURL(cfg.HTTP)),
			slog.String("dialect", string(handle.Dialect())),
			slog.String("ai_mode", string(cfg.AI.Mode)),
		}
		if public := share.PublicURL(cfg.HTTP, nil); public != "" {
			attrs = append(attrs, slog.String("public_url", public))
		}
		logger.Info("starting api server", attrs...)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		_ = handle.Close()
		os.Exit(1)
	}
}

func buildAgent(ctx context.Context, cfg config.Config, handle database.Handle, logger *slog.Logger) (agent.Agent, error) {
	switch cfg.AI.Mode {
	case config.AIModeTranslate:
		client, err := nl2sql.NewOpenAIClient(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return translate.New(translate.Config{
			Translator: client,
			Summarizer: client,
			Database:   handle,
			SampleRows: cfg.Database.SampleRows,
			TopK:       cfg.AI.TopK,
			Logger:     logger,
		})
	case config.AIModeTools:
		chatModel, err := sqlagent.NewOpenAIModel(ctx, sqlagent.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return sqlagent.New(ctx, sqlagent.Config{
			Model:         chatModel,
			Database:      handle,
			TopK:          cfg.AI.TopK,
			MaxIterations: cfg.AI.MaxSteps,
			SampleRows:    cfg.Database.SampleRows,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported ai mode %q", cfg.AI.Mode)
	}
}

func attachDatasets(ctx context.Context, cfg config.Config, handle *sqldb.Handle, logger *slog.Logger) error {
	store, err := s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	tables, err := handle.AttachDatasets(ctx, store, cfg.Datasets.Prefix)
	if err != nil {
		return err
	}
	logger.Info("datasets attached",
		slog.String("location", store.Location()),
		slog.String("prefix", cfg.Datasets.Prefix),
		slog.Any("tables", tables),
	)
	return nil
}
