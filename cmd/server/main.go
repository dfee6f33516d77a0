// Package main runs the opscore API server: dynamic form schemas, permission
// resolution, document numbering and transaction entry management behind a
// single REST surface.
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

	app "github.com/ticware/opscore/internal/app"
	"github.com/ticware/opscore/internal/app/httpapi"
	"github.com/ticware/opscore/internal/app/metrics"
	"github.com/ticware/opscore/internal/app/storage/postgres"
	"github.com/ticware/opscore/internal/config"
	"github.com/ticware/opscore/internal/middleware"
	"github.com/ticware/opscore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	auditPath := flag.String("audit-file", "", "Append audit trail as JSONL to this file")
	flag.Parse()

	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	log := logger.NewDefault("server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("Failed to open database")
			os.Exit(1)
		}
		defer db.Close()

		store := postgres.New(db)
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := store.Migrate(migrateCtx); err != nil {
			cancel()
			log.WithError(err).Error("Migration failed")
			os.Exit(1)
		}
		cancel()

		stores = app.Stores{
			Submodules: store,
			Fields:     store,
			Entries:    store,
			Roles:      store,
			Users:      store,
			Licenses:   store,
			Counters:   store,
		}
		log.Info("Using postgres storage")
	} else {
		log.Info("DATABASE_URL not set, using in-memory storage")
	}

	application, err := app.New(stores, app.Options{
		SuperAdminEmail:  cfg.SuperAdminEmail,
		DocNoPrefix:      cfg.DocNoPrefix,
		FiscalPeriod:     cfg.FiscalPeriod,
		AutosaveInterval: time.Duration(cfg.AutosaveSeconds) * time.Second,
	}, log)
	if err != nil {
		log.WithError(err).Error("Failed to build application")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("Failed to start application")
		os.Exit(1)
	}

	var opts []httpapi.Option
	if *auditPath != "" {
		opts = append(opts, httpapi.WithAuditFile(*auditPath))
	}
	api := httpapi.NewHandler(application, log, opts...)

	auth := middleware.NewAuthMiddleware([]byte(cfg.JWTSecret), log, []string{"/healthz", "/metrics"})
	cors := middleware.NewCORSMiddleware([]string{"*"})
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", auth.Handler(limiter.Handler(api)))

	handler := cors.Handler(metrics.InstrumentHandler(mux))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Application shutdown error")
	}
}
