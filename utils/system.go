// sixchan/utils/system.go
package utils

import (
	"time"
)

// Clock supplies the current time. Tests swap it for a fixed clock.
type Clock func() time.Time

// SystemClock returns the current time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// GetSQLTime returns the current time in UTC for database storage.
func GetSQLTime() time.Time {
	return SystemClock()
}

// TodayUTC returns the UTC calendar date of t as YYYYMMDD.
func TodayUTC(t time.Time) string {
	return t.UTC().Format("20060102")
}
