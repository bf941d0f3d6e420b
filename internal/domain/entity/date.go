package entity

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for createdAt, updatedAt and dueDate
const DateLayout = "2006-01-02"

// Date is a calendar date in ISO form (YYYY-MM-DD). Lexical order is chronological order.
type Date string

// DateOf returns the UTC calendar date of t
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// ParseDate validates s as a calendar date
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return Date(s), nil
}

// String returns the string representation of the date
func (d Date) String() string {
	return string(d)
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == ""
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d < other
}
