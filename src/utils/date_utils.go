package utils

import (
	"fmt"
	"time"
)

// DayFormat is the calendar-date format used across the API and storage.
const DayFormat = "2006-01-02"

// ParseDay parses an ISO calendar date (2006-01-02).
func ParseDay(dateStr string) (time.Time, error) {
	t, err := time.Parse(DayFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s): %w", dateStr, DayFormat, err)
	}
	return t, nil
}

// FormatDay formats a time as an ISO calendar date.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// Day truncates a time to midnight UTC, keeping day granularity only.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
