/*
Package main is the entry point for the messenger server.

It loads configuration, initializes logging, opens the store and optional object storage,
starts the realtime hub and the HTTP server, and shuts everything down gracefully on
SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messenger/internal/app/db"
	"messenger/internal/app/realtime"
	"messenger/internal/app/service"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/app/store/memory"
	"messenger/internal/configs"
	"messenger/internal/handler"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/pow"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("store_driver", cfg.StoreDriver).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	if err := run(cfg); err != nil {
		logx.Fatal(err, "Server exited with error")
	}
}

func run(cfg *configs.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var objects storage.StorageService
	if cfg.StorageEnabled() {
		objects, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3Region:          cfg.S3Region,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize object storage: %w", err)
		}
	} else {
		logx.Warn("S3_BUCKET_NAME not set, uploads are disabled")
	}

	hub := realtime.NewHub()

	deps := &handler.AppDeps{
		Config: cfg,
		Services: service.New(service.Deps{
			Store:        st,
			Notifier:     hub.Dispatcher,
			Storage:      objects,
			JWTSecret:    cfg.JWTSecret,
			AssetBaseURL: cfg.AssetBaseURL,
		}),
		Hub:   hub,
		PoW:   pow.NewPoWManager(ctx, cfg.PowDifficulty),
		Store: st,
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(ctx, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Messenger server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by the server; close them first.
	hub.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logx.Info("Server gracefully stopped.")
	return nil
}

func openStore(ctx context.Context, cfg *configs.AppConfig) (store.Store, error) {
	if cfg.StoreDriver == configs.StoreDriverMemory {
		logx.Warn("Using the in-memory store, data will not survive a restart")
		return memory.New(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db.NewStore(pool), nil
}
