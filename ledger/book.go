/*
book.go - Request-level operations over a Store

PURPOSE:
  Book is what the presentation layer calls. Every operation reloads both
  ledgers from the Store, recomputes totals and balances from scratch, and
  returns. No state survives between calls, so there is nothing to
  invalidate after a write.

REQUEST FLOW:
  1. Load sales and payment events
  2. Aggregate net totals per customer
  3. Reconcile events into running balances (reads only)
  4. Filter for the requested customer

CALLER CHOICES:
  Selected customer, chart grouping and similar UI state are always passed
  in as arguments. Book never reads ambient session state.

SEE ALSO:
  - reconcile.go: The balance algorithm
  - store.go: Persistence interface
  - api/handlers.go: HTTP caller
*/
package ledger

import (
	"context"
	"fmt"
)

type Book struct {
	Store      Store
	Commission Commission
}

func NewBook(store Store, commission Commission) *Book {
	return &Book{Store: store, Commission: commission}
}

// snapshot is one request's working set.
type snapshot struct {
	sales  []Sale
	events []PaymentEvent
	totals Totals
}

func (b *Book) load(ctx context.Context) (*snapshot, error) {
	sales, err := b.Store.LoadSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	events, err := b.Store.LoadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return &snapshot{
		sales:  sales,
		events: events,
		totals: Aggregate(sales, b.Commission),
	}, nil
}

// reconcile balances the events of one customer, or of every customer for
// AllCustomers. A single customer's view never depends on other customers'
// events, so an unreconcilable customer only fails its own view and the
// all-customers view.
func (s *snapshot) reconcile(customer string) ([]ReconciledEvent, error) {
	if customer == AllCustomers {
		return Reconcile(s.totals, s.events)
	}
	var own []PaymentEvent
	for _, e := range s.events {
		if e.Customer == customer {
			own = append(own, e)
		}
	}
	return Reconcile(s.totals, own)
}

// =============================================================================
// WRITES
// =============================================================================

// AddSale records a sale. Negative numbers are coerced to zero.
func (b *Book) AddSale(ctx context.Context, in SaleInput) (Sale, error) {
	customer := NormalizeCustomer(in.Customer)
	if customer == "" {
		return Sale{}, ErrMissingCustomer
	}
	if in.Date.IsZero() {
		return Sale{}, fmt.Errorf("%w: sale date is required", ErrInvalidDate)
	}
	bunches := in.Bunches
	if bunches < 0 {
		bunches = 0
	}
	return b.Store.AppendSale(ctx, Sale{
		ID:       NewSaleID(),
		Date:     in.Date,
		Customer: customer,
		Bunches:  bunches,
		Total:    in.Total.NonNegative(),
	})
}

// RecordPayment appends a payment. The customer must have recorded sales.
func (b *Book) RecordPayment(ctx context.Context, customer string, date Date, amount Amount) (PaymentEvent, error) {
	event, _, err := b.appendEvent(ctx, customer, date, KindPayment, amount, false)
	return event, err
}

// ApplyDiscount appends a discount. An identical discount (same customer,
// date and amount) already on file is returned instead with created=false.
func (b *Book) ApplyDiscount(ctx context.Context, customer string, date Date, amount Amount) (event PaymentEvent, created bool, err error) {
	return b.appendEvent(ctx, customer, date, KindDiscount, amount, true)
}

func (b *Book) appendEvent(ctx context.Context, customer string, date Date, kind EventKind, amount Amount, dedupe bool) (PaymentEvent, bool, error) {
	customer = NormalizeCustomer(customer)
	if customer == "" {
		return PaymentEvent{}, false, ErrMissingCustomer
	}
	if date.IsZero() {
		return PaymentEvent{}, false, fmt.Errorf("%w: %s date is required", ErrInvalidDate, kind)
	}
	amount = amount.NonNegative()
	if amount.IsZero() {
		return PaymentEvent{}, false, ErrEmptyAmount
	}

	snap, err := b.load(ctx)
	if err != nil {
		return PaymentEvent{}, false, err
	}
	if !snap.totals.Has(customer) {
		return PaymentEvent{}, false, &UnreconcilableCustomerError{Customer: customer}
	}

	if dedupe {
		for _, e := range snap.events {
			if e.Customer == customer && e.Kind == kind && e.Date.Equal(date) && e.Amount.Equal(amount) {
				return e, false, nil
			}
		}
	}

	event, err := b.Store.AppendEvent(ctx, PaymentEvent{
		ID:       NewEventID(),
		Customer: customer,
		Date:     date,
		Kind:     kind,
		Amount:   amount,
	})
	if err != nil {
		return PaymentEvent{}, false, err
	}
	return event, true, nil
}

// DeletePayment removes a payment or discount by id.
func (b *Book) DeletePayment(ctx context.Context, id EventID) error {
	if id == "" {
		return ErrEventNotFound
	}
	return b.Store.DeleteEvent(ctx, id)
}

// Reset clears both ledgers.
func (b *Book) Reset(ctx context.Context) error {
	return b.Store.Reset(ctx)
}

// =============================================================================
// READS
// =============================================================================

// Sales returns sale lines for a customer (or AllCustomers), newest first.
func (b *Book) Sales(ctx context.Context, customer string) ([]SaleLine, error) {
	snap, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterSales(b.Commission.Lines(snap.sales), customer), nil
}

// Totals returns the net amount owed per customer.
func (b *Book) Totals(ctx context.Context) (Totals, error) {
	snap, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.totals, nil
}

// Customers returns every customer with recorded sales, sorted.
func (b *Book) Customers(ctx context.Context) ([]string, error) {
	totals, err := b.Totals(ctx)
	if err != nil {
		return nil, err
	}
	return totals.Customers(), nil
}

// Payments returns reconciled events for a customer (or AllCustomers),
// newest recorded first.
func (b *Book) Payments(ctx context.Context, customer string) ([]ReconciledEvent, error) {
	snap, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.reconcile(customer)
}

// PaymentSummary returns one customer's paid, discounted and remaining amounts.
func (b *Book) PaymentSummary(ctx context.Context, customer string) (Summary, error) {
	customer = NormalizeCustomer(customer)
	if customer == "" {
		return Summary{}, ErrMissingCustomer
	}
	snap, err := b.load(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !snap.totals.Has(customer) {
		return Summary{}, &UnreconcilableCustomerError{Customer: customer}
	}
	events, err := snap.reconcile(customer)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(customer, snap.totals.Get(customer), events), nil
}

// Chart returns net amounts grouped by customer or by sale date.
func (b *Book) Chart(ctx context.Context, by ChartGrouping) ([]ChartPoint, error) {
	lines, err := b.Sales(ctx, AllCustomers)
	if err != nil {
		return nil, err
	}
	if by == ByDate {
		return NetByDate(lines), nil
	}
	return NetByCustomer(lines), nil
}
