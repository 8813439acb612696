// presenced - lobby presence and fan-out server
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
	"github.com/ndemidov/presenced/internal/api"
	"github.com/ndemidov/presenced/internal/config"
	"github.com/ndemidov/presenced/internal/directory"
	"github.com/ndemidov/presenced/internal/friendsync"
	"github.com/ndemidov/presenced/internal/middleware"
	"github.com/ndemidov/presenced/internal/presence"
	"github.com/ndemidov/presenced/internal/store"
	"github.com/ndemidov/presenced/internal/ws"
	"github.com/redis/go-redis/v9"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(),
		"default_ttl", cfg.DefaultTTL, "sweep_interval", cfg.SweepInterval)

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

	// Core presence state: one store, one registry, one broadcaster,
	// instantiated here and passed by reference everywhere.
	presenceStore := presence.NewStore(cfg.DefaultTTL)
	registry := presence.NewRegistry()
	broadcaster := presence.NewBroadcaster(registry)

	notifier := friendsync.NewNotifier(cfg.FriendSync.URL, cfg.FriendSync.Timeout)
	if notifier.Enabled() {
		slog.Info("Friend-sync notifications enabled", "url", cfg.FriendSync.URL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Directory change-watcher (optional).
	version := &directory.Version{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Warn("Redis unreachable, directory watcher disabled", "error", err)
		} else {
			defer func() {
				if closeErr := rdb.Close(); closeErr != nil {
					slog.Debug("Failed to close redis client", "error", closeErr)
				}
			}()
			directory.NewWatcher(rdb, cfg.Redis.ProfileChannel, version).Start(ctx)
		}
	} else {
		slog.Info("Directory watcher disabled (REDIS_ADDR not set)")
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(presenceStore, registry, broadcaster, repo, notifier, version)
	wsHandler := ws.NewHandler(presenceStore, registry, broadcaster, cfg.AllowedOrigin, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// WebSocket endpoint; the shared-secret check applies to the REST
	// surface only.
	r.Get("/ws/lobby", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SharedSecret(cfg.SharedSecret))
		api.NewPresenceHandler(baseHandler).RegisterRoutes(r)
		api.NewInviteHandler(baseHandler).RegisterRoutes(r)
	})

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	presence.StartSweeper(ctx, presenceStore, broadcaster, cfg.SweepInterval)

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
