// Package main runs the trading desk API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/qoricash/tradingdesk/internal/app"
	"github.com/qoricash/tradingdesk/internal/app/httpapi"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/app/storage/postgres"
	"github.com/qoricash/tradingdesk/internal/config"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	// Missing .env files are fine; real deployments use the environment.
	_ = godotenv.Load()

	log := logging.New("server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	var store storage.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("failed to open database")
			os.Exit(1)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			log.WithError(err).Error("database is unreachable")
			os.Exit(1)
		}
		store = postgres.New(db)
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	application := app.New(app.Options{
		Store:          store,
		TrackingPrefix: cfg.TrackingPrefix,
		RateMin:        cfg.RateMin,
		RateMax:        cfg.RateMax,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		Logger:         log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start application")
		os.Exit(1)
	}

	authMW := middleware.NewAuthMiddleware(application.Auth, log, []string{"/api/auth/login"})
	handler := httpapi.NewRouter(application, authMW)

	tracing := middleware.NewTracingMiddleware(log)
	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, log)
	rateLimiter.StartCleanup(10 * time.Minute)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      tracing.Handler(cors.Handler(rateLimiter.Handler(handler))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application stop error")
	}

	log.Info("server stopped")
}
