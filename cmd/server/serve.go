package main

import (
	"architect/internal/api"
	"architect/internal/app"
	"architect/internal/config"
	"architect/internal/lock"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"architect/internal/repository/memory"
	"architect/internal/repository/postgres"
	"architect/internal/service/llm"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile := logger.Configure(cfg.Log.Level, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logFile.Close()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	generator, err := llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize text generation: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	container := app.NewConfig(store, generator, locker, cfg)

	if err := container.Auth.SeedDemoUser(ctx); err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	catalog, err := config.LoadTemplateCatalog(cfg.Templates.Path)
	if err != nil {
		return fmt.Errorf("failed to load template catalog: %w", err)
	}
	if _, err := container.Templates.Seed(ctx, catalog); err != nil {
		return fmt.Errorf("failed to seed templates: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.WithFields(logrus.Fields{
			"port":      cfg.Server.Port,
			"store":     cfg.Database.Driver,
			"generator": generator.Name(),
		}).Info("Server starting")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Log.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, dbConfig config.DatabaseConfig) (db.Database, error) {
	switch dbConfig.Driver {
	case config.DriverMemory:
		logger.Log.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		logger.Log.Info("Initializing database...")
		store, err := postgres.NewPostgresDB(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store, nil
	}
}

// newLocker uses Redis when an address is configured so that several
// instances share conversation locks
func newLocker(ctx context.Context, redisConfig config.RedisConfig) (lock.Locker, func(), error) {
	if redisConfig.Addr == "" {
		return lock.NewLocal(redisConfig.LockWaitTimeout), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", redisConfig.Addr, err)
	}

	logger.Log.WithField("addr", redisConfig.Addr).Info("Using Redis conversation locks")
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Log.WithError(err).Warn("Error closing redis client")
		}
	}
	return lock.NewRedis(client, redisConfig.LockTTL, redisConfig.LockWaitTimeout), closeFn, nil
}
