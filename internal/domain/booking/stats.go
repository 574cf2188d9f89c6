package booking

import "slices"

type Stats struct {
	Pending   int
	Active    int
	Completed int
	// One entry per currency, sorted by currency code
	Earnings []Money
}

// FoldStats counts a provider's bookings by status and sums the price
// snapshots of completed ones. Pure and order independent.
func FoldStats(bookings []*Booking) Stats {
	var s Stats
	earned := map[string]Money{}
	for _, b := range bookings {
		switch b.status {
		case StatusPending:
			s.Pending++
		case StatusAccepted:
			s.Active++
		case StatusCompleted:
			s.Completed++
			sum, ok := earned[b.price.currency]
			if !ok {
				sum = Money{currency: b.price.currency}
			}
			// same currency key, cannot fail
			earned[b.price.currency], _ = sum.Add(b.price)
		}
	}

	currencies := make([]string, 0, len(earned))
	for c := range earned {
		currencies = append(currencies, c)
	}
	slices.Sort(currencies)
	for _, c := range currencies {
		s.Earnings = append(s.Earnings, earned[c])
	}
	return s
}
