package ledger

import "sort"

// =============================================================================
// TOTALS - Net amount owed per customer
// =============================================================================

// Totals maps customer → total net amount across all of that customer's sales.
type Totals map[string]Amount

// Aggregate sums net amounts per customer. An empty sale set yields an empty map.
func Aggregate(sales []Sale, c Commission) Totals {
	totals := make(Totals)
	for _, s := range sales {
		line := c.Apply(s)
		totals[s.Customer] = totals.Get(s.Customer).Add(line.Net)
	}
	return totals
}

// Get returns the customer's total, zero if unknown.
func (t Totals) Get(customer string) Amount {
	if amt, ok := t[customer]; ok {
		return amt
	}
	return ZeroAmount()
}

// Has reports whether the customer has any recorded sales.
func (t Totals) Has(customer string) bool {
	_, ok := t[customer]
	return ok
}

// Customers returns customer names in sorted order.
func (t Totals) Customers() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
