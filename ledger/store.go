/*
store.go - Persistence interface for the two ledgers

PURPOSE:
  Defines what the engine needs from durable storage: append rows, read
  every row back in storage order, and delete a payment event by its id.
  The engine never updates a row in place.

IDENTITY:
  The Store assigns Seq on append (monotonic, never reused within a store)
  and keeps the caller's ID. Delete is by EventID, so a stale id can never
  remove a different row: it fails with ErrEventNotFound instead.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and demos
  - store/sqldb/sqldb.go: SQLite / PostgreSQL
  - store/csvfile/csvfile.go: Flat CSV files

SEE ALSO:
  - book.go: The only caller of Store
*/
package ledger

import "context"

// Store persists sales and payment events.
// Single writer at a time; no concurrent-writer protection is required.
type Store interface {
	// AppendSale persists a sale and returns it with Seq assigned.
	AppendSale(ctx context.Context, sale Sale) (Sale, error)

	// AppendEvent persists a payment event and returns it with Seq assigned.
	AppendEvent(ctx context.Context, event PaymentEvent) (PaymentEvent, error)

	// LoadSales returns every sale in storage order.
	LoadSales(ctx context.Context) ([]Sale, error)

	// LoadEvents returns every payment event in storage order.
	LoadEvents(ctx context.Context) ([]PaymentEvent, error)

	// DeleteEvent removes the event with the given id.
	// Returns ErrEventNotFound if no such event exists.
	DeleteEvent(ctx context.Context, id EventID) error

	// Reset removes all rows from both ledgers.
	Reset(ctx context.Context) error
}
