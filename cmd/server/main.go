/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bunch ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Open the selected store (memory, sqlite, postgres, csv)
  4. Load users and the contact directory
  5. Configure the HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port             HTTP server port (default: 8080)
  -store            memory | sqlite | postgres | csv (default: sqlite)
  -db               SQLite path, PostgreSQL URL or CSV directory
  -commission       Commission per bunch (default: 20)
  -session-timeout  Login lifetime (default: 15m)
  -users            Users JSON file (default: users.json)
  -contacts         Customer address JSON file
  -hash-password    Print a bcrypt hash for the users file and exit

  See config/config.go for the matching environment variables.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with a SQLite file
  ./server -db="./data/ledger.db"

  # Run in memory
  ./server -store=memory

  # Keep the ledgers as CSV files in ./data
  ./server -store=csv -db=./data

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mrbanana/bunch-ledger/api"
	"github.com/mrbanana/bunch-ledger/auth"
	"github.com/mrbanana/bunch-ledger/config"
	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/ledger/store"
	"github.com/mrbanana/bunch-ledger/logging"
	"github.com/mrbanana/bunch-ledger/notify"
	"github.com/mrbanana/bunch-ledger/store/csvfile"
	"github.com/mrbanana/bunch-ledger/store/sqldb"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	if cfg.HashPassword != "" {
		hash, err := auth.HashPassword(cfg.HashPassword)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ledgerStore, closer, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	users, err := auth.LoadUsers(cfg.UsersFile)
	if err != nil {
		return err
	}
	if users.Len() == 0 {
		logger.Warn("no users configured, nobody can log in", zap.String("file", cfg.UsersFile))
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Only reachable with the memory store; sessions die with the process anyway.
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using a random per-process key")
	}

	var notifier *notify.Notifier
	if cfg.NotifyEnabled() {
		directory, err := notify.LoadDirectory(cfg.ContactsFile)
		if err != nil {
			return err
		}
		notifier = notify.NewNotifier(notify.NewGupshup(cfg.Gupshup), directory, logger)
	} else {
		logger.Info("messaging disabled: GUPSHUP_API_KEY / GUPSHUP_SOURCE not set")
	}

	book := ledger.NewBook(ledgerStore, ledger.NewCommission(ledger.Amount{Value: cfg.Commission}))
	handler := api.NewHandler(book, users, auth.NewTokens(secret, cfg.SessionTTL), notifier, logger)
	router := api.NewRouter(handler, api.RouterOptions{})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("store", cfg.Store),
			zap.String("commission_per_bunch", cfg.Commission.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(cfg config.Config, logger *zap.Logger) (ledger.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), nopCloser{}, nil
	case config.StoreCSV:
		s, err := csvfile.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open csv store: %w", err)
		}
		return s, nopCloser{}, nil
	case config.StorePostgres:
		s, err := sqldb.Open(sqldb.Config{Driver: sqldb.DriverPostgres, DSN: cfg.DatabaseURL}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return s, s, nil
	default:
		s, err := sqldb.NewSQLite(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s, nil
	}
}
