// Package main is the entry point for the POS dashboard server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/handidevproject/pos-dashboard/internal/config"
	"github.com/handidevproject/pos-dashboard/internal/database"
	"github.com/handidevproject/pos-dashboard/internal/handler/web"
	"github.com/handidevproject/pos-dashboard/internal/middleware"
	"github.com/handidevproject/pos-dashboard/internal/service"
	"github.com/handidevproject/pos-dashboard/internal/storage"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting POS dashboard",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
		slog.String("supabase_project", cfg.Supabase.ProjectRef()),
	)

	// The server client needs every key; fail now rather than on the first request.
	if _, err := supabase.NewServerClient(cfg.Supabase, nil, supabase.ServerOptions{}); err != nil {
		log.Fatalf("Invalid Supabase configuration: %v", err)
	}

	httpClient := supabase.NewHTTPClient(cfg.Supabase.Timeout, logger)

	// Redis is optional; without it form submissions are not rate limited.
	var counter middleware.Counter
	var redis *database.Redis
	if cfg.Redis.Enabled {
		redis, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		counter = redis
		logger.Info("Connected to Redis")
	}

	avatars, err := storage.NewAvatarStore(context.Background(), cfg.Storage, cfg.Supabase.URL)
	if err != nil {
		log.Fatalf("Failed to configure avatar storage: %v", err)
	}
	if !avatars.Enabled() {
		logger.Warn("Avatar uploads disabled, only image URLs are accepted")
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Warn("POS_SESSION_SECRET not set, flash messages will not survive a restart")
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(time.Hour.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	cookieOpts := supabase.DefaultCookieOptions()
	cookieOpts.Secure = cfg.Session.SecureCookie

	webHandler := web.NewWebHandler(
		web.Config{
			Supabase:       cfg.Supabase,
			Auth:           cfg.Auth,
			Cookie:         cookieOpts,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		},
		httpClient,
		service.NewAuthService(logger),
		service.NewUserService(avatars, logger),
		sessionStore,
		logger,
	)

	guard := middleware.NewSessionGuard(middleware.GuardConfig{
		Supabase:    cfg.Supabase,
		HTTPClient:  httpClient,
		Cookie:      cookieOpts,
		LoginPath:   cfg.Auth.LoginPath,
		HomePath:    cfg.Auth.HomePath,
		PublicPaths: cfg.Auth.PublicPaths,
		Logger:      logger,
	})

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(redis))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(guard.Handler)
		r.Use(middleware.RateLimit(counter, middleware.DefaultRateLimitConfig(), logger))
		// Innermost, so handlers see whether headers went out before writing cookies.
		r.Use(middleware.TrackHeaders)
		r.Mount("/", webHandler.Routes())
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// healthHandler returns a simple health check that always succeeds if the server is running.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies the Redis connection
// when one is configured.
func readyHandler(redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"error","component":"redis"}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
