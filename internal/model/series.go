package model

import "time"

// DayBucket is a count grouped by calendar day, as computed by the store.
type DayBucket struct {
	Day   int
	Month time.Month
	Year  int
	Count int
}

// DayCount is one point of a dense day series.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}
