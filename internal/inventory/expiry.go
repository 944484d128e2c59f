package inventory

import "time"

// NearExpiryDays is the default alert window before a lot expires.
const NearExpiryDays = 30

// EarliestOpenLot returns the open lot that expires first.
func EarliestOpenLot(lots []Lot) (Lot, bool) {
	var (
		best  Lot
		found bool
	)
	for _, lot := range lots {
		if lot.Remaining <= 0 {
			continue
		}
		if !found || lot.ExpiryDate.Before(best.ExpiryDate) ||
			(lot.ExpiryDate.Equal(best.ExpiryDate) && lot.ID < best.ID) {
			best = lot
			found = true
		}
	}
	return best, found
}

// ClassifyExpiry uses the default alert window.
func ClassifyExpiry(lots []Lot, today time.Time) ExpiryStatus {
	return ClassifyExpiryWithin(lots, today, NearExpiryDays)
}

// ClassifyExpiryWithin classifies a product by its earliest expiring open lot.
func ClassifyExpiryWithin(lots []Lot, today time.Time, windowDays int) ExpiryStatus {
	lot, ok := EarliestOpenLot(lots)
	if !ok {
		return ExpiryNoStock
	}
	return ClassifyDate(lot.ExpiryDate, today, windowDays)
}

// ClassifyDate classifies a single expiry date against today.
func ClassifyDate(expiry, today time.Time, windowDays int) ExpiryStatus {
	exp := dateOnly(expiry)
	day := dateOnly(today)
	switch {
	case exp.Before(day):
		return ExpiryExpired
	case !exp.After(day.AddDate(0, 0, windowDays)):
		return ExpiryNear
	default:
		return ExpiryOK
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
