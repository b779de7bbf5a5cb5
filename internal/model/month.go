package model

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// ParseMonth validates a YYYY-MM month key.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	return t, nil
}

// MonthRange expands an inclusive from..to range into ordered month keys.
func MonthRange(from, to string) ([]string, error) {
	start, err := ParseMonth(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseMonth(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("month range %s..%s: end before start", from, to)
	}

	var months []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format(monthLayout))
	}
	return months, nil
}

// MonthOf returns the YYYY-MM key a date falls in.
func MonthOf(date time.Time) string {
	return date.Format(monthLayout)
}
