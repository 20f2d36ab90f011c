// Package main provides the entry point for the API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relohub/platform/internal/api"
	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/identity"
	"github.com/relohub/platform/internal/storage"
	pgstore "github.com/relohub/platform/internal/store/postgres"
	"github.com/relohub/platform/pkg/config"
	"github.com/relohub/platform/pkg/logger"
)

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	// Initialize logger
	log := logger.New(slog.LevelInfo, true)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database store
	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize auth service
	authCfg := &auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}
	authService := auth.NewService(authCfg, log.Logger)

	// Initialize identity-provider client
	provider := identity.NewHTTPProvider(identity.Config{
		BaseURL: cfg.Identity.BaseURL,
		APIKey:  cfg.Identity.APIKey,
		Timeout: cfg.Identity.Timeout,
	}, log.Logger)

	// Initialize document blob storage, encrypted at rest when age keys
	// are configured.
	var blobs storage.BlobStore
	localBlobs, err := storage.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		log.Error("failed to initialize blob storage", "error", err, "dir", cfg.Storage.Dir)
		os.Exit(1)
	}
	blobs = localBlobs
	if cfg.Storage.AgeRecipient != "" || cfg.Storage.AgeIdentity != "" {
		encrypted, err := storage.NewAgeStore(localBlobs, cfg.Storage.AgeRecipient, cfg.Storage.AgeIdentity, log.Logger)
		if err != nil {
			log.Error("failed to initialize blob encryption", "error", err)
			os.Exit(1)
		}
		blobs = encrypted
		log.Info("blob storage encryption enabled")
	} else {
		log.Warn("age keys not configured, documents will be stored unencrypted")
	}

	// Create and start the API server
	server := api.NewServer(cfg, store, store, authService, provider, blobs, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Start the server
	log.Info("starting API server",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Give time for graceful shutdown
	time.Sleep(100 * time.Millisecond)
	log.Info("server stopped")
}
