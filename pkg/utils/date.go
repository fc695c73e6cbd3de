package utils

import (
	"fmt"
	"time"
)

// QuarterOf returns the calendar quarter of a date in YYYY-Qn form.
func QuarterOf(t time.Time) string {
	quarter := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
}

// DaysBetween returns the number of whole days from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

// ParseFiscalDate parses an API fiscal date (YYYY-MM-DD), returning ok=false
// for empty or malformed values.
func ParseFiscalDate(s string) (time.Time, bool) {
	if s == "" || s == "None" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
