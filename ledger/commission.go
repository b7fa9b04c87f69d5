package ledger

import "sort"

// DefaultCommissionPerBunch is the seller's cut per bunch sold.
const DefaultCommissionPerBunch = 20

// =============================================================================
// COMMISSION - Per-sale deduction
// =============================================================================

// Commission derives the commission and net amount of a sale.
//
//	commission = bunches × PerBunch
//	net        = total − commission
type Commission struct {
	PerBunch Amount
}

func NewCommission(perBunch Amount) Commission {
	return Commission{PerBunch: perBunch.NonNegative()}
}

func DefaultCommission() Commission {
	return NewCommission(NewAmountFromInt(DefaultCommissionPerBunch))
}

// Apply returns the sale with its derived amounts. Negative inputs count as zero.
func (c Commission) Apply(s Sale) SaleLine {
	bunches := s.Bunches
	if bunches < 0 {
		bunches = 0
	}
	total := s.Total.NonNegative()
	commission := c.PerBunch.MulInt(bunches)
	return SaleLine{
		Sale:       s,
		Commission: commission,
		Net:        total.Sub(commission),
	}
}

// Lines applies the commission to every sale, newest recorded first.
func (c Commission) Lines(sales []Sale) []SaleLine {
	lines := make([]SaleLine, len(sales))
	for i, s := range sales {
		lines[i] = c.Apply(s)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Seq > lines[j].Seq
	})
	return lines
}
