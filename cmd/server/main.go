package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/onboarding-booking-api/internal/api"
	"github.com/onboarding-booking-api/internal/auth"
	"github.com/onboarding-booking-api/internal/calendar"
	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/mailer"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/pkg/logger"
	"github.com/onboarding-booking-api/pkg/obs"
)

const (
	serviceName = "onboarding-booking-api"
	version     = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting onboarding and booking API server...")

	// Tracing
	shutdownTracer, err := obs.InitTracer(context.Background(), serviceName, version, cfg.Tracing.Endpoint, cfg.Tracing.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// "server migrate-down" rolls back the last migration and exits
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := db.MigrateDown(cfg.Server.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// External collaborators
	cal := calendar.NewNoop()
	if cfg.Calendar.Enabled {
		cal, err = calendar.NewGoogle(context.Background(), []byte(cfg.Calendar.CredentialsJSON), cfg.Calendar.RetryAttempts, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize calendar client")
		}
		log.Info().Msg("Google Calendar sync enabled")
	}

	sender, closeMailer, err := mailer.New(&cfg.Mail, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}
	defer func() {
		if err := closeMailer(); err != nil {
			log.Error().Err(err).Msg("Failed to close mailer")
		}
	}()

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	// Initialize services
	services := service.NewServices(repos, service.Dependencies{
		Calendar: cal,
		Mailer:   sender,
		Tokens:   tokens,
	}, cfg, log)

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exited gracefully")
}
