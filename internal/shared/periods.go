package shared

import "time"

// DateLayout is the layout used for dates on the wire.
const DateLayout = "2006-01-02"

// ErrInvalidPeriod indicates a range whose end precedes its start.
var ErrInvalidPeriod = NewValidationError("to", "period end before start")

// Period is a half-open [From, To) range. A zero bound is unbounded.
type Period struct {
	From time.Time
	To   time.Time
}

// AllTime returns an unbounded period.
func AllTime() Period {
	return Period{}
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{From: start, To: start.AddDate(0, 1, 0)}
}

// ParsePeriod reads inclusive from/to dates ("2006-01-02"); empty strings are unbounded.
func ParsePeriod(from, to string) (Period, error) {
	var p Period
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return Period{}, NewValidationError("from", "invalid date")
		}
		p.From = t
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return Period{}, NewValidationError("to", "invalid date")
		}
		p.To = t.AddDate(0, 0, 1)
	}
	if !p.From.IsZero() && !p.To.IsZero() && !p.To.After(p.From) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains reports whether t falls in the period.
func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// Key renders the period for cache keys.
func (p Period) Key() string {
	from, to := "-", "-"
	if !p.From.IsZero() {
		from = p.From.Format(DateLayout)
	}
	if !p.To.IsZero() {
		to = p.To.Format(DateLayout)
	}
	return from + "_" + to
}

// Today truncates t to midnight in its location.
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
