/*
Package notify delivers text summaries to customers over a chat API.

PURPOSE:
  Resolves a customer to a destination address and hands the message to a
  Sender. Delivery is fire-and-forget: no retries, no delivery receipts.

ADDRESS RESOLUTION:
  1. The static Directory entry for the customer (case-insensitive)
  2. Otherwise the address supplied by the caller
  Addresses are normalized by dropping spaces, dashes and a leading "+".
  What remains must be 8 to 15 digits (E.164 without the plus), so a bare
  country-code prefix such as "+91" counts as no address.

SEE ALSO:
  - gupshup.go: Sender for the Gupshup WhatsApp API
*/
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNoDestination is returned when no usable address exists for a customer.
	ErrNoDestination = errors.New("no destination address")

	// ErrDeclined wraps any failure reported by the Sender.
	ErrDeclined = errors.New("notification declined")
)

// Sender delivers one text message to one address.
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory maps customer names to addresses.
type Directory struct {
	entries map[string]string
}

func NewDirectory(entries map[string]string) *Directory {
	d := &Directory{entries: make(map[string]string, len(entries))}
	for name, addr := range entries {
		d.entries[strings.ToLower(strings.TrimSpace(name))] = addr
	}
	return d
}

// LoadDirectory reads a JSON object of customer name to address.
// An empty path yields an empty directory.
func LoadDirectory(path string) (*Directory, error) {
	if path == "" {
		return NewDirectory(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse contacts %s: %w", path, err)
	}
	return NewDirectory(entries), nil
}

// Lookup returns the directory address for customer, if any.
func (d *Directory) Lookup(customer string) (string, bool) {
	addr, ok := d.entries[strings.ToLower(strings.TrimSpace(customer))]
	return addr, ok
}

// Resolve returns the normalized destination for customer, preferring the
// directory entry over fallback.
func (d *Directory) Resolve(customer, fallback string) (string, error) {
	if addr, ok := d.Lookup(customer); ok {
		if n, err := NormalizeAddress(addr); err == nil {
			return n, nil
		}
	}
	n, err := NormalizeAddress(fallback)
	if err != nil {
		return "", fmt.Errorf("%w for %q", ErrNoDestination, customer)
	}
	return n, nil
}

// NormalizeAddress strips formatting from a phone-style address and checks
// that 8 to 15 digits remain.
func NormalizeAddress(addr string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(addr) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return "", ErrNoDestination
		}
	}
	n := b.String()
	if len(n) < 8 || len(n) > 15 {
		return "", ErrNoDestination
	}
	return n, nil
}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier resolves customers and sends through a Sender.
type Notifier struct {
	sender    Sender
	directory *Directory
	logger    *zap.Logger
}

func NewNotifier(sender Sender, directory *Directory, logger *zap.Logger) *Notifier {
	if directory == nil {
		directory = NewDirectory(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, directory: directory, logger: logger}
}

// Notify sends text to customer and returns the address used.
func (n *Notifier) Notify(ctx context.Context, customer, fallback, text string) (string, error) {
	addr, err := n.directory.Resolve(customer, fallback)
	if err != nil {
		return "", err
	}
	if err := n.sender.Send(ctx, addr, text); err != nil {
		n.logger.Warn("notification failed",
			zap.String("customer", customer),
			zap.String("destination", addr),
			zap.Error(err),
		)
		return addr, fmt.Errorf("%w: %w", ErrDeclined, err)
	}
	n.logger.Info("notification sent",
		zap.String("customer", customer),
		zap.String("destination", addr),
	)
	return addr, nil
}
