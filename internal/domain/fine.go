package domain

import "time"

// Day is the unit lateness is measured in.
const Day = 24 * time.Hour

// FinePolicy charges a flat amount per started day a book is returned late.
type FinePolicy struct {
	RatePerDay int64
}

// DaysLate returns the whole days between due and returned, rounding any partial day up.
// Returns 0 when returned is not after due.
func DaysLate(due, returned time.Time) int64 {
	late := returned.Sub(due)
	if late <= 0 {
		return 0
	}
	days := int64(late / Day)
	if late%Day != 0 {
		days++
	}
	return days
}

// Fine returns the amount owed for a return at the given instant.
func (p FinePolicy) Fine(due, returned time.Time) int64 {
	return DaysLate(due, returned) * p.RatePerDay
}

// DaysUntil returns ceil((due - now) / 1 day). Negative once the due date has passed.
func DaysUntil(due, now time.Time) int {
	left := due.Sub(now)
	days := int(left / Day)
	if left%Day > 0 {
		days++
	}
	return days
}
