package util

import "time"

// DayUTC truncates t to midnight of its UTC calendar day.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInclusive is the number of calendar days from start's day through
// end's day, both included. It is 0 when end's day precedes start's.
func DaysInclusive(start, end time.Time) int {
	first, last := DayUTC(start), DayUTC(end)
	if last.Before(first) {
		return 0
	}
	return int(last.Sub(first).Hours()/24) + 1
}
