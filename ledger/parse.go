package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LENIENT PARSING - Malformed numbers become zero
// =============================================================================
// Bunches, totals, paid amounts and discounts are never rejected for being
// malformed: non-numeric, empty or negative input is coerced to zero.

// ParseAmount parses a money value, returning zero for anything unusable.
func ParseAmount(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return ZeroAmount()
	}
	return Amount{Value: d}.NonNegative()
}

// ParseBunches parses a bunch count. Fractional counts are truncated.
func ParseBunches(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.IntPart()
}
