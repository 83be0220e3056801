/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift compliance service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration (file + SHIFTS_* env)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire the notification runner (outbox mailer) and job scheduler
  5. Create API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: ./config.yaml or ./config/config.yaml)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides db.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the job scheduler (waits for an in-flight check)
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/shifts.db"

  # Run with in-memory database and console logs
  SHIFTS_LOG_FORMAT=console ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/logger"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shift-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// Initialize store
	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := sqlite.New(cfg.DB.Path, log.Named("store"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	// Notification jobs write to the outbox table
	mailer := notify.NewOutboxMailer(st, log.Named("mailer"))
	runner := notify.NewRunner(st, mailer, log.Named("jobs"))
	scheduler, err := api.NewJobScheduler(st, runner, cfg.Jobs, log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Initialize handler
	handler := api.NewHandler(st, log.Named("api"))
	handler.Scheduler = scheduler
	handler.Outbox = st
	handler.Departments = cfg.Departments

	router := api.NewRouter(handler, cfg.Server.CORS.AllowOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.DB.Path),
			zap.String("timezone", cfg.Jobs.Timezone),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
