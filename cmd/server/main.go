/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Parse command-line flags (flags override environment)
  3. Initialize SQLite store and restore pending edits
  4. Start the recompute scheduler
  5. Start the HTTP server with graceful shutdown

CONFIGURATION:
  BILLING_PORT        HTTP server port (default: 8080)
  BILLING_DB          SQLite database path (default: billing.db)
  BILLING_OUTPUT_DIR  Directory scanned for generated invoices (default: ./invoices)
  BILLING_LOG_LEVEL   zerolog level (default: info)

  Flags -port, -db and -output override the environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections, wait up to 30s for active requests
  3. Close the database connection
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/fakturak/billing-engine/api"
	"github.com/fakturak/billing-engine/store/sqlite"
)

type config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	DB        string `envconfig:"DB" default:"billing.db"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./invoices"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process("billing", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DB, "SQLite database path")
	outputDir := flag.String("output", cfg.OutputDir, "generated invoice directory")
	flag.Parse()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, *outputDir, log)
	if err := handler.Restore(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to restore persisted state")
	}

	scheduler := api.NewRecomputeScheduler(handler, log)
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler, log)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
