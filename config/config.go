/*
Package config assembles server settings from .env, environment and flags.

PRECEDENCE (lowest to highest):
  1. Built-in defaults
  2. .env file in the working directory (optional; never overrides the
     real environment)
  3. Environment variables
  4. Command-line flags

ENVIRONMENT:
  PORT                  HTTP port (8080)
  STORE                 memory | sqlite | postgres | csv (sqlite)
  DATABASE_URL          SQLite path, PostgreSQL URL, or CSV directory
  LOG_LEVEL             zap level (info)
  COMMISSION_PER_BUNCH  decimal (20)
  JWT_SECRET            session signing key (required outside memory mode)
  SESSION_TIMEOUT       Go duration (15m)
  USERS_FILE            users JSON (users.json)
  CONTACTS_FILE         customer address JSON (optional)
  GUPSHUP_API_KEY, GUPSHUP_SOURCE, GUPSHUP_APP_NAME, GUPSHUP_URL
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrbanana/bunch-ledger/ledger"
	"github.com/mrbanana/bunch-ledger/notify"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreCSV      = "csv"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Port         int
	Store        string
	DatabaseURL  string
	LogLevel     string
	Commission   decimal.Decimal
	JWTSecret    string
	SessionTTL   time.Duration
	UsersFile    string
	ContactsFile string
	Gupshup      notify.GupshupConfig

	// HashPassword, when set, asks main to print its bcrypt hash and exit.
	HashPassword string
}

// Load reads .env (if present), the environment, then args.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	port, err := strconv.Atoi(env("PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: PORT: %v", ErrInvalid, err)
	}
	ttl, err := time.ParseDuration(env("SESSION_TIMEOUT", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: SESSION_TIMEOUT: %v", ErrInvalid, err)
	}

	cfg := Config{}
	var commission string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.Port, "port", port, "HTTP server port")
	fs.StringVar(&cfg.Store, "store", env("STORE", StoreSQLite), "storage backend: memory, sqlite, postgres, csv")
	fs.StringVar(&cfg.DatabaseURL, "db", env("DATABASE_URL", ""), "SQLite path, PostgreSQL URL or CSV directory")
	fs.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&commission, "commission", env("COMMISSION_PER_BUNCH", strconv.Itoa(ledger.DefaultCommissionPerBunch)), "commission per bunch")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", env("JWT_SECRET", ""), "session signing key")
	fs.DurationVar(&cfg.SessionTTL, "session-timeout", ttl, "session lifetime")
	fs.StringVar(&cfg.UsersFile, "users", env("USERS_FILE", "users.json"), "users JSON file")
	fs.StringVar(&cfg.ContactsFile, "contacts", env("CONTACTS_FILE", ""), "customer address JSON file")
	fs.StringVar(&cfg.Gupshup.BaseURL, "gupshup-url", env("GUPSHUP_URL", notify.DefaultGupshupURL), "Gupshup API base URL")
	fs.StringVar(&cfg.HashPassword, "hash-password", "", "print the bcrypt hash of a password and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg.Gupshup.APIKey = getenv("GUPSHUP_API_KEY")
	cfg.Gupshup.Source = getenv("GUPSHUP_SOURCE")
	cfg.Gupshup.AppName = getenv("GUPSHUP_APP_NAME")

	cfg.Commission, err = decimal.NewFromString(commission)
	if err != nil || cfg.Commission.IsNegative() {
		return Config{}, fmt.Errorf("%w: commission %q", ErrInvalid, commission)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultLocation(cfg.Store)
	}
	if cfg.HashPassword != "" {
		return cfg, nil
	}
	return cfg, cfg.validate()
}

func defaultLocation(store string) string {
	switch store {
	case StoreSQLite:
		return "ledger.db"
	case StoreCSV:
		return "."
	}
	return ""
}

func (c Config) validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreCSV:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres store needs DATABASE_URL", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if c.JWTSecret == "" && c.Store != StoreMemory {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalid)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	return nil
}

// NotifyEnabled reports whether Gupshup credentials are configured.
func (c Config) NotifyEnabled() bool {
	return c.Gupshup.APIKey != "" && c.Gupshup.Source != ""
}
