/*
reconcile.go - Running paid/remaining balances per customer

PURPOSE:
  Turns the flat payment event stream into per-event running totals: how
  much the customer has paid so far, how much has been discounted so far,
  and what is still owed after that event.

ALGORITHM:
  1. Partition events by customer
  2. Sort each partition by (date asc, Seq asc). Seq breaks same-day ties
     in the order the events were recorded
  3. Walk once with paid_acc / discount_acc starting at zero:
       TotalPaid_i = paid_acc
       Remaining_i = customer_total − (paid_acc + discount_acc)
  4. Merge all partitions and sort by Seq descending (newest recorded first)

INVARIANTS:
  - In chronological order TotalPaid and TotalDiscount never decrease and
    Remaining never increases (amounts are non-negative)
  - The result depends only on relative Seq order, not absolute values
  - Recomputing from the same inputs yields identical output

SEE ALSO:
  - aggregate.go: Totals (customer_total above)
  - view.go: Filtering and summaries over the reconciled events
*/
package ledger

import "sort"

// Reconcile annotates every event with its customer's running balance.
//
// Returns an *UnreconcilableCustomerError if an event's customer has no
// entry in totals. An empty event set returns an empty slice and no error.
func Reconcile(totals Totals, events []PaymentEvent) ([]ReconciledEvent, error) {
	if len(events) == 0 {
		return []ReconciledEvent{}, nil
	}

	// 1. Partition by customer
	byCustomer := make(map[string][]PaymentEvent)
	for _, e := range events {
		byCustomer[e.Customer] = append(byCustomer[e.Customer], e)
	}

	customers := make([]string, 0, len(byCustomer))
	for customer := range byCustomer {
		customers = append(customers, customer)
	}
	sort.Strings(customers)

	result := make([]ReconciledEvent, 0, len(events))
	for _, customer := range customers {
		stream := byCustomer[customer]
		total, ok := totals[customer]
		if !ok {
			return nil, &UnreconcilableCustomerError{Customer: customer, EventID: stream[0].ID}
		}

		// 2. Chronological, recording order as tiebreak
		sortChronological(stream)

		// 3. Running sums
		paid := ZeroAmount()
		discount := ZeroAmount()
		for _, e := range stream {
			paid = paid.Add(e.Paid().NonNegative())
			discount = discount.Add(e.Discount().NonNegative())
			result = append(result, ReconciledEvent{
				PaymentEvent:  e,
				TotalPaid:     paid,
				TotalDiscount: discount,
				Remaining:     total.Sub(paid.Add(discount)),
			})
		}
	}

	// 4. Newest recorded first
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Seq > result[j].Seq
	})
	return result, nil
}

func sortChronological(events []PaymentEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Seq < events[j].Seq
	})
}
