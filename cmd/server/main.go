// Package main provides the API server entry point for the Pace Club service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pace-club/internal/api"
	"github.com/pace-club/internal/chain"
	"github.com/pace-club/internal/config"
	"github.com/pace-club/internal/logging"
	"github.com/pace-club/internal/onboarding"
	"github.com/pace-club/internal/storage"
	"github.com/pace-club/internal/strava"
	"github.com/pace-club/internal/verify"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisStore(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize the on-chain disclosure reader
	reader, err := chain.NewReader(cfg.Chain.RPCURL, cfg.Chain.ContractAddress)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize chain reader")
	}
	logger.WithField("contract", cfg.Chain.ContractAddress).Info("Chain reader initialized")

	// Initialize repositories and caches
	identityRepo := storage.NewIdentityRepository(postgres)
	activityCache := storage.NewActivityCache(redis, cfg.Strava.CacheTTL)

	// Initialize collaborators
	stravaClient := strava.NewClient(&cfg.Strava)
	verifier := verify.NewBuilder(&cfg.Verification, cfg.Chain.ContractAddress)

	onboardingService := onboarding.NewService(&onboarding.ServiceConfig{
		Repo:        identityRepo,
		Verifier:    verifier,
		Chain:       reader,
		Provider:    stravaClient,
		Cache:       activityCache,
		RedirectURI: cfg.Strava.RedirectURI,
		PerPage:     cfg.Strava.PerPage,
	})

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		ClientRPS:       cfg.Server.ClientRPS,
		CallbackURI:     cfg.Strava.RedirectURI,
		ForwardURL:      cfg.Server.RedirectURL,
	}

	server := api.NewServer(serverConfig, onboardingService, stravaClient, activityCache)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("API server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
