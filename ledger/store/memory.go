// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/mrbanana/bunch-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	sales  []ledger.Sale
	events []ledger.PaymentEvent
	seq    int64
}

func NewMemory() *Memory {
	return &Memory{}
}

// AppendSale adds a sale. Append-only.
func (m *Memory) AppendSale(_ context.Context, sale ledger.Sale) (ledger.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	sale.Seq = m.seq
	m.sales = append(m.sales, sale)
	return sale, nil
}

// AppendEvent adds a payment event. Append-only.
func (m *Memory) AppendEvent(_ context.Context, event ledger.PaymentEvent) (ledger.PaymentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !event.Kind.Valid() {
		return ledger.PaymentEvent{}, ledger.ErrInvalidKind
	}
	m.seq++
	event.Seq = m.seq
	m.events = append(m.events, event)
	return event, nil
}

func (m *Memory) LoadSales(_ context.Context) ([]ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Sale, len(m.sales))
	copy(result, m.sales)
	return result, nil
}

func (m *Memory) LoadEvents(_ context.Context) ([]ledger.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.PaymentEvent, len(m.events))
	copy(result, m.events)
	return result, nil
}

// DeleteEvent removes one event by id.
func (m *Memory) DeleteEvent(_ context.Context, id ledger.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i:i], m.events[i+1:]...)
			return nil
		}
	}
	return ledger.ErrEventNotFound
}

// Reset drops all rows. Seq keeps counting so old ids stay unique.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sales = nil
	m.events = nil
	return nil
}
