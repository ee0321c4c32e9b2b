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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/adapter/paramstore"
	"github.com/xiaot623/seawatch/internal/config"
	"github.com/xiaot623/seawatch/internal/hub"
	"github.com/xiaot623/seawatch/internal/repository"
	"github.com/xiaot623/seawatch/internal/service"
	handler "github.com/xiaot623/seawatch/internal/transport/http"
	"github.com/xiaot623/seawatch/policy"
)

func main() {
	if err := run(); err != nil {
		slog.Error("relay exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"port", cfg.HTTPPort,
		"store", cfg.StoreBackend,
		"upstream", cfg.LLMBaseURL,
		"model", cfg.LLMModel,
		"mode", cfg.CallMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []service.Option
	opts = append(opts, service.WithLogger(logger))

	if cfg.LLMAPIKeyParam != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load aws config: %w", err)
		}
		keys, err := paramstore.New(ssm.NewFromConfig(awsCfg), cfg.LLMAPIKeyParam, paramstore.DefaultTTL)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithKeySource(keys))
	}

	// Initialize policy engine
	grader, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Live alert feed
	alertHub := hub.New()
	go alertHub.Run(ctx)
	alerts := hub.NewServer(hub.ServerConfig{
		PingInterval:   cfg.WSPingInterval,
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadTimeout:    cfg.WSReadTimeout,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}, alertHub)
	opts = append(opts, service.WithAlerts(alertHub, grader))

	svc := service.New(store, llm.NewClientFactory(cfg.LLMBaseURL, cfg.LLMTimeout), cfg, opts...)
	server := handler.NewServer(svc, cfg, alerts)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down relay")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("relay stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return repository.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
	default:
		return repository.NewSQLiteStore(cfg.DatabaseURL)
	}
}
