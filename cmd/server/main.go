package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"managerclass/internal/backend"
	"managerclass/internal/config"
	"managerclass/internal/handlers"
	"managerclass/internal/logger"
	"managerclass/internal/security"
	"managerclass/internal/service"
)

func main() {
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := security.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the data store
	handlers.SetCurrentStep(handlers.StepDataStore)
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open data store", "backend", cfg.DataBackend, "error", err)
	}
	defer store.Close()
	handlers.CompleteStep(handlers.StepDataStore)
	handlers.CompleteStep(handlers.StepMigrations)

	if cfg.SeedDefaultContent {
		handlers.SetCurrentStep(handlers.StepSeeding)
		seeded, err := service.SeedDefaultContent(ctx, store.Store, log)
		if err != nil {
			log.Warn("failed to seed default content", "error", err)
		} else if seeded {
			log.Info("default content seeded")
		}
	}
	handlers.CompleteStep(handlers.StepSeeding)

	// Initialize services
	handlers.SetCurrentStep(handlers.StepServices)
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.NotifyEmail, log)
	if err != nil {
		log.Warn("email notifications disabled", "error", err)
	}
	var notifier service.CompletionNotifier
	if emailService != nil && emailService.IsEnabled() {
		notifier = emailService
	}

	authService := service.NewAuthService(store.Store.Users, log)
	learningService := service.NewLearningService(store.Store, notifier, log)
	adminAuthService := service.NewAdminAuthService(service.AdminCredentials{
		Username:     cfg.AdminUsername,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
	}, cfg.AdminJWTSecret, cfg.AdminSessionDuration, log)
	if !adminAuthService.Configured() {
		log.Warn("admin account is not configured; dashboard login is disabled")
	}
	adminService := service.NewAdminService(store.Store, notifier, log)
	statsService := service.NewStatsService(store.Store)

	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	// Initialize handlers
	forceSecure := cfg.IsProduction()
	routes := &handlers.Routes{
		Auth:       handlers.NewAuthHandler(authService, log),
		Learner:    handlers.NewLearnerHandler(learningService, log),
		Admin:      handlers.NewAdminHandler(adminAuthService, adminService, statsService, log, forceSecure),
		Middleware: handlers.NewMiddleware(adminAuthService, limiter, log, forceSecure),
	}
	handlers.CompleteStep(handlers.StepServices)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      routes.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", addr, "backend", store.Name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()
	handlers.MarkReady()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
