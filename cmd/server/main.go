// chatlab - scripted conversational exercise server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mbertsch/chatlab/internal/api"
	"github.com/mbertsch/chatlab/internal/appdata"
	"github.com/mbertsch/chatlab/internal/chat"
	"github.com/mbertsch/chatlab/internal/config"
	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/identity"
	"github.com/mbertsch/chatlab/internal/interaction"
	"github.com/mbertsch/chatlab/internal/middleware"
	"github.com/mbertsch/chatlab/internal/store"
	"github.com/mbertsch/chatlab/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Load the exercise template.
	template := domain.DefaultTemplate()
	if cfg.TemplatePath != "" {
		template, err = domain.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			slog.Error("Failed to load exercise template", "path", cfg.TemplatePath, "error", err)
			os.Exit(1)
		}
		slog.Info("Exercise template loaded", "path", cfg.TemplatePath, "exchanges", len(template.Exchanges))
	}

	// Optional sync journal.
	journal, err := appdata.NewJournal(appdata.JournalConfig{
		Enabled:   cfg.SyncJournal.Enabled,
		Path:      cfg.SyncJournal.Path,
		QueueSize: cfg.SyncJournal.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize sync journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			slog.Error("Failed to close sync journal", "error", closeErr)
		}
	}()

	// Initialize services.
	manager := interaction.NewManager(repo, template, journal, logger)
	registry := chat.NewRegistry()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, manager)
	healthHandler := api.NewHealthHandler(repo)
	interactionHandler := api.NewInteractionHandler(baseHandler)
	adminHandler := api.NewAdminHandler(baseHandler)
	wsHandler := chat.NewWebSocketHandler(manager, registry, chat.ScriptedResponder{}, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.AdminToken, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Participant and admin routes.
	interactionHandler.RegisterRoutes(r)
	adminHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, WebSocket sessions stay open
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
