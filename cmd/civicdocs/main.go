// Package main is the entry point for the CivicDocs API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"civicdocs/internal/activity"
	"civicdocs/internal/cache"
	"civicdocs/internal/config"
	"civicdocs/internal/database"
	"civicdocs/internal/events"
	"civicdocs/internal/flash"
	"civicdocs/internal/handlers"
	"civicdocs/internal/lifecycle"
	"civicdocs/internal/listing"
	"civicdocs/internal/router"
	"civicdocs/internal/session"
	"civicdocs/internal/store"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load a .env file when present; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, activity ranking, notices, render cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Initialize session store backed by Valkey.
	// Session cookies are Secure (HTTPS-only) outside development unless
	// explicitly overridden.
	secureCookies := cfg.SecureCookies || !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	docStore := store.NewDocumentStore(db)
	pageStore := store.NewPageStore(db)
	supportStore := store.NewSupportStore(db)
	sponsorStore := store.NewSponsorStore(db)
	annotationStore := store.NewAnnotationStore(db)

	// Valkey-backed collaborators.
	ranker := activity.NewRanker(valkeyClient)
	flashes := flash.NewStore(valkeyClient)
	renders := cache.NewRenderCache(valkeyClient, cache.DefaultRenderTTL)
	sink := events.NewValkeySink(valkeyClient)

	// Domain services.
	lifecycleSvc := lifecycle.NewService(docStore, pageStore, supportStore, sink, ranker)
	listingSvc := listing.NewService(docStore, sponsorStore, ranker, flashes)

	// Create handler groups with their dependencies.
	documentHandlers := handlers.NewDocuments(
		listingSvc, lifecycleSvc,
		docStore, pageStore, supportStore, sponsorStore, annotationStore,
		flashes, renders,
	)
	authHandlers := handlers.NewAuth(sessionStore, userStore)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, documentHandlers, authHandlers)

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
