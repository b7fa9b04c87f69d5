/*
Package ledger provides the sales and payments reconciliation engine.

PURPOSE:
  Records what each customer bought (sales, counted in bunches) and what each
  customer paid back (payments and discounts), and derives how much is still
  owed. Nothing derived is ever stored: commission, net amounts, per-customer
  totals and running balances are recomputed from the two append-only ledgers
  on every request.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: An exact decimal money value
  - Sale: One sale row (date, customer, bunches, total charged)
  - PaymentEvent: One payment or discount against a customer's balance
  - EventID / SaleID: Stable identifiers assigned at append time

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so long event chains never drift
  2. Stable identity: Events are deleted by EventID, never by row position
  3. One stream: Payments and discounts share a per-customer event stream,
     distinguished by EventKind

USAGE:
  sale := ledger.Sale{
      Date:     ledger.NewDate(2024, time.January, 1),
      Customer: "alice",
      Bunches:  5,
      Total:    ledger.NewAmountFromInt(500),
  }

SEE ALSO:
  - commission.go: Commission and net amount per sale
  - reconcile.go: Running paid/remaining balances
  - book.go: Request-level orchestration over a Store
*/
package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Exact money value
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount   { return Amount{Value: decimal.NewFromFloat(value)} }
func NewAmountFromInt(value int64) Amount { return Amount{Value: decimal.NewFromInt(value)} }
func ZeroAmount() Amount                { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount        { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount        { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) MulInt(n int64) Amount      { return Amount{Value: a.Value.Mul(decimal.NewFromInt(n))} }
func (a Amount) Neg() Amount                { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool           { return a.Value.IsNegative() }
func (a Amount) IsZero() bool               { return a.Value.IsZero() }
func (a Amount) IsPositive() bool           { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool        { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool  { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool     { return a.Value.LessThan(b.Value) }
func (a Amount) String() string             { return a.Value.String() }

// Float64 is for presentation only (charts, JSON numbers).
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// NonNegative clamps negative values to zero.
func (a Amount) NonNegative() Amount {
	if a.IsNegative() {
		return ZeroAmount()
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SaleID string
type EventID string

func NewSaleID() SaleID   { return SaleID(uuid.NewString()) }
func NewEventID() EventID { return EventID(uuid.NewString()) }

// NormalizeCustomer trims surrounding whitespace from a customer identifier.
func NormalizeCustomer(name string) string {
	return strings.TrimSpace(name)
}

// =============================================================================
// SALE - One row of the sales ledger
// =============================================================================

type Sale struct {
	ID       SaleID
	Seq      int64 // assigned by the Store, monotonic
	Date     Date
	Customer string
	Bunches  int64
	Total    Amount
}

// SaleInput is what an admin submits; the Store assigns identity.
type SaleInput struct {
	Date     Date
	Customer string
	Bunches  int64
	Total    Amount
}

// SaleLine is a Sale with its derived commission and net amount.
type SaleLine struct {
	Sale
	Commission Amount
	Net        Amount
}

// =============================================================================
// PAYMENT EVENT - Payment or discount against a customer's balance
// =============================================================================

type EventKind string

const (
	KindPayment  EventKind = "payment"
	KindDiscount EventKind = "discount"
)

func (k EventKind) Valid() bool { return k == KindPayment || k == KindDiscount }

type PaymentEvent struct {
	ID       EventID
	Seq      int64 // insertion sequence, assigned by the Store
	Customer string
	Date     Date
	Kind     EventKind
	Amount   Amount
}

// Paid returns the paid amount, zero for discounts.
func (e PaymentEvent) Paid() Amount {
	if e.Kind == KindPayment {
		return e.Amount
	}
	return ZeroAmount()
}

// Discount returns the discount amount, zero for payments.
func (e PaymentEvent) Discount() Amount {
	if e.Kind == KindDiscount {
		return e.Amount
	}
	return ZeroAmount()
}

// ReconciledEvent is a PaymentEvent annotated with the customer's running
// totals as of that event.
type ReconciledEvent struct {
	PaymentEvent
	TotalPaid     Amount
	TotalDiscount Amount
	Remaining     Amount
}
