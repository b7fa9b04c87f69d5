package ledger

import "sort"

// AllCustomers is the filter value that selects every customer.
const AllCustomers = ""

// =============================================================================
// FILTERS - Pure subsets, order preserved
// =============================================================================

func FilterSales(lines []SaleLine, customer string) []SaleLine {
	if customer == AllCustomers {
		return lines
	}
	out := make([]SaleLine, 0, len(lines))
	for _, l := range lines {
		if l.Customer == customer {
			out = append(out, l)
		}
	}
	return out
}

func FilterEvents(events []ReconciledEvent, customer string) []ReconciledEvent {
	if customer == AllCustomers {
		return events
	}
	out := make([]ReconciledEvent, 0, len(events))
	for _, e := range events {
		if e.Customer == customer {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// SUMMARY - One customer's position
// =============================================================================

type Summary struct {
	Customer      string
	Total         Amount // net owed across all sales
	TotalPaid     Amount
	TotalDiscount Amount
	Remaining     Amount
}

// Summarize computes a customer's position from reconciled events (any order)
// and the customer's total. With no events, Remaining equals the total.
func Summarize(customer string, total Amount, events []ReconciledEvent) Summary {
	s := Summary{
		Customer:      customer,
		Total:         total,
		TotalPaid:     ZeroAmount(),
		TotalDiscount: ZeroAmount(),
	}
	for _, e := range events {
		if e.Customer != customer {
			continue
		}
		s.TotalPaid = s.TotalPaid.Add(e.Paid())
		s.TotalDiscount = s.TotalDiscount.Add(e.Discount())
	}
	s.Remaining = total.Sub(s.TotalPaid.Add(s.TotalDiscount))
	return s
}

// =============================================================================
// CHART SERIES - Net amount grouped for plotting
// =============================================================================

type ChartGrouping string

const (
	ByCustomer ChartGrouping = "customer"
	ByDate     ChartGrouping = "date"
)

type ChartPoint struct {
	Label string
	Net   Amount
}

// NetByCustomer returns net per customer, sorted by name.
func NetByCustomer(lines []SaleLine) []ChartPoint {
	sums := make(map[string]Amount)
	for _, l := range lines {
		sums[l.Customer] = sumOrZero(sums, l.Customer).Add(l.Net)
	}
	points := make([]ChartPoint, 0, len(sums))
	for name, net := range sums {
		points = append(points, ChartPoint{Label: name, Net: net})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

// NetByDate returns net per sale date, oldest first. Labels are ISO dates.
func NetByDate(lines []SaleLine) []ChartPoint {
	sums := make(map[string]Amount)
	for _, l := range lines {
		day := l.Date.ISO()
		sums[day] = sumOrZero(sums, day).Add(l.Net)
	}
	points := make([]ChartPoint, 0, len(sums))
	for day, net := range sums {
		points = append(points, ChartPoint{Label: day, Net: net})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

func sumOrZero(m map[string]Amount, k string) Amount {
	if v, ok := m[k]; ok {
		return v
	}
	return ZeroAmount()
}
