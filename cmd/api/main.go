// Package main is the entry point for the trip ledger API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pressly/goose/v3"

	"github.com/viagemapp/tripledger/internal/config"
	"github.com/viagemapp/tripledger/internal/handler"
	"github.com/viagemapp/tripledger/internal/middleware"
	"github.com/viagemapp/tripledger/internal/notify"
	"github.com/viagemapp/tripledger/internal/repo"
	"github.com/viagemapp/tripledger/internal/service"
	"github.com/viagemapp/tripledger/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// .env is optional and only used for local development; real deployments
	// inject environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON output for log aggregators by default; LOG_FORMAT=text switches to
	// a colored human-readable handler for local development.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	var slogHandler slog.Handler
	if cfg.LogFormat == "text" {
		slogHandler = tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel})
	} else {
		slogHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(slogHandler)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Migrations -------------------------------------------------------
	// Applied at startup from the embedded FS so the schema and the binary
	// always match. goose needs database/sql, not a pgx pool.
	if err := runMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations up to date")

	// --- Wiring -----------------------------------------------------------
	trips := repo.NewTripRepo(pool)
	expenses := repo.NewExpenseRepo(pool)

	tripSvc := service.NewTripService(trips)
	expenseSvc := service.NewExpenseService(trips, expenses)
	reportSvc := service.NewReportService(trips, expenses)

	// The event pipeline: one LISTEN connection feeds the hub, the hub fans
	// out to every open SSE stream.
	listenCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	hub := notify.NewHub()
	events := make(chan notify.Event, 64)
	go func() {
		_ = notify.NewListener(pool, logger).Listen(listenCtx, events)
	}()
	go hub.Run(events)

	srv := handler.NewServer(tripSvc, expenseSvc, reportSvc, hub)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body size limit. Identity extraction happens inside the /trips
	// subtree so health stays public.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is deliberately absent: the SSE endpoint holds responses
	// open indefinitely. Read and idle timeouts still bound slow clients.
	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	// Stop the event pipeline before draining HTTP. Open SSE streams that
	// outlive the drain window are force-closed when Shutdown times out.
	stopListener()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// runMigrations applies all pending goose migrations from the embedded FS.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(context.Background())
	return err
}
