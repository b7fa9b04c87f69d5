/*
Package sqldb provides a SQL-backed implementation of ledger.Store.

PURPOSE:
  Persists the sales and payment ledgers in SQLite (default) or PostgreSQL
  through database/sql. The same queries serve both; only DDL and the
  placeholder style differ per dialect.

KEY TABLES:
  sales:          One row per sale, append-only
  payment_events: One row per payment or discount; rows are only ever
                  removed by id (mistake correction)

IDENTITY:
  seq: autoincrement insertion sequence, the same-day tiebreak
  id:  UUID assigned by the engine, the delete key

CORRUPTION POLICY:
  If an SQLite file cannot be read as a database it is removed and an
  empty schema is created in its place. This loses data on purpose and is
  logged at warn level.

CONCURRENCY:
  Uses sync.RWMutex. The ledger assumes a single writer at a time.

USAGE:
  store, err := sqldb.Open(sqldb.Config{Driver: sqldb.DriverSQLite, DSN: "./ledger.db"}, logger)
  if err != nil {
      return err
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/mrbanana/bunch-ledger/ledger"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Config struct {
	Driver string // DriverSQLite or DriverPostgres
	DSN    string // file path / ":memory:" for SQLite, URL for PostgreSQL
}

// Store implements ledger.Store over database/sql.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	dialect dialect
	logger  *zap.Logger
}

// Open connects, migrates, and for SQLite recovers from a corrupt file.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	s, err := open(cfg, d, logger)
	if err == nil {
		return s, nil
	}
	if d.name != DriverSQLite || !isCorrupt(err) || isMemoryDSN(cfg.DSN) {
		return nil, err
	}

	logger.Warn("ledger database unreadable, reinitializing empty store",
		zap.String("path", dbPath(cfg.DSN)),
		zap.Error(err),
	)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if rmErr := os.Remove(dbPath(cfg.DSN) + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("failed to remove corrupt database: %w", rmErr)
		}
	}
	return open(cfg, d, logger)
}

// NewSQLite opens an SQLite store. Use ":memory:" for an in-memory database.
func NewSQLite(path string, logger *zap.Logger) (*Store, error) {
	return Open(Config{Driver: DriverSQLite, DSN: path}, logger)
}

func open(cfg Config, d dialect, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(d.name, d.dsn(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.name == DriverSQLite {
		// One connection: ":memory:" databases are per-connection.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, dialect: d, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SALES
// =============================================================================

// AppendSale adds a sale and returns it with its assigned seq.
func (s *Store) AppendSale(ctx context.Context, sale ledger.Sale) (ledger.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.dialect.rebind(`
		INSERT INTO sales (id, sale_date, customer, bunches, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING seq
	`)
	err := s.db.QueryRowContext(ctx, query,
		string(sale.ID),
		sale.Date.ISO(),
		sale.Customer,
		sale.Bunches,
		sale.Total.String(),
		time.Now().UTC().Format(time.RFC3339),
	).Scan(&sale.Seq)
	if err != nil {
		return ledger.Sale{}, fmt.Errorf("failed to append sale: %w", err)
	}
	return sale, nil
}

// LoadSales returns all sales in insertion order.
func (s *Store) LoadSales(ctx context.Context) ([]ledger.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, sale_date, customer, bunches, total
		FROM sales
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []ledger.Sale
	for rows.Next() {
		var (
			sale  ledger.Sale
			id    string
			date  string
			total string
		)
		if err := rows.Scan(&sale.Seq, &id, &date, &sale.Customer, &sale.Bunches, &total); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.ID = ledger.SaleID(id)
		sale.Date, err = ledger.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("sale %s: %w", id, err)
		}
		sale.Total = ledger.ParseAmount(total)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// =============================================================================
// PAYMENT EVENTS
// =============================================================================

// AppendEvent adds a payment or discount and returns it with its assigned seq.
func (s *Store) AppendEvent(ctx context.Context, event ledger.PaymentEvent) (ledger.PaymentEvent, error) {
	if !event.Kind.Valid() {
		return ledger.PaymentEvent{}, ledger.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.dialect.rebind(`
		INSERT INTO payment_events (id, customer, event_date, kind, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING seq
	`)
	err := s.db.QueryRowContext(ctx, query,
		string(event.ID),
		event.Customer,
		event.Date.ISO(),
		string(event.Kind),
		event.Amount.String(),
		time.Now().UTC().Format(time.RFC3339),
	).Scan(&event.Seq)
	if err != nil {
		return ledger.PaymentEvent{}, fmt.Errorf("failed to append payment event: %w", err)
	}
	return event, nil
}

// LoadEvents returns all payment events in insertion order.
func (s *Store) LoadEvents(ctx context.Context) ([]ledger.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, customer, event_date, kind, amount
		FROM payment_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	var events []ledger.PaymentEvent
	for rows.Next() {
		var (
			event  ledger.PaymentEvent
			id     string
			date   string
			kind   string
			amount string
		)
		if err := rows.Scan(&event.Seq, &id, &event.Customer, &date, &kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		event.ID = ledger.EventID(id)
		event.Kind = ledger.EventKind(kind)
		event.Date, err = ledger.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("payment event %s: %w", id, err)
		}
		event.Amount = ledger.ParseAmount(amount)
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteEvent removes one payment event by id.
func (s *Store) DeleteEvent(ctx context.Context, id ledger.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM payment_events WHERE id = ?"), string(id))
	if err != nil {
		return fmt.Errorf("failed to delete payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete payment event: %w", err)
	}
	if n == 0 {
		return ledger.ErrEventNotFound
	}
	return nil
}

// Reset clears both ledgers.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payment_events", "sales"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// DIALECTS
// =============================================================================

type dialect struct {
	name       string
	schema     []string
	dollarArgs bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", DriverSQLite, "sqlite":
		return dialect{name: DriverSQLite, schema: sqliteSchema}, nil
	case DriverPostgres, "postgres", "postgresql":
		return dialect{name: DriverPostgres, schema: postgresSchema, dollarArgs: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d dialect) dsn(dsn string) string {
	if d.name != DriverSQLite {
		return dsn
	}
	if isMemoryDSN(dsn) {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_journal_mode=WAL"
	}
	return dsn + "?_journal_mode=WAL"
}

// dbPath returns the file behind an SQLite DSN, without "file:" or query.
func dbPath(dsn string) string {
	path, _, _ := strings.Cut(dsn, "?")
	return strings.TrimPrefix(path, "file:")
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		sale_date TEXT NOT NULL,
		customer TEXT NOT NULL,
		bunches INTEGER NOT NULL,
		total TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer)`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		customer TEXT NOT NULL,
		event_date TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('payment', 'discount')),
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_events_customer_date
		ON payment_events(customer, event_date, seq)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		sale_date TEXT NOT NULL,
		customer TEXT NOT NULL,
		bunches BIGINT NOT NULL,
		total TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer)`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		customer TEXT NOT NULL,
		event_date TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('payment', 'discount')),
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_events_customer_date
		ON payment_events(customer, event_date, seq)`,
}

// =============================================================================
// HELPERS
// =============================================================================

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:")
}

// isCorrupt reports whether SQLite rejected the file as not-a-database or corrupt.
func isCorrupt(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}
