// Package dateutils provides common date operations used throughout the
// application: statement date parsing and search window arithmetic.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Common date format constants.
const (
	LayoutOFX      = "20060102"
	LayoutISO      = "2006-01-02"
	LayoutEuropean = "02.01.2006"
)

// FallbackFormats is tried in order when the configured layout does not match.
var FallbackFormats = []string{
	LayoutOFX,
	LayoutISO,
	LayoutEuropean,
	"02/01/2006",
	"2006/01/02",
}

// ParseStatementDate parses a date string from a statement file under the
// given layout. OFX timestamps carry an optional time and timezone suffix
// ("20250310120000[-3:BRT]"); the value is truncated to its calendar date.
func ParseStatementDate(value, layout string) (time.Time, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Strip a bracketed timezone annotation if present.
	if idx := strings.IndexByte(cleaned, '['); idx > 0 {
		cleaned = cleaned[:idx]
	}

	// Truncate an OFX timestamp to its date component.
	if layout == LayoutOFX && len(cleaned) > len(LayoutOFX) {
		cleaned = cleaned[:len(LayoutOFX)]
	}

	if t, err := time.Parse(layout, cleaned); err == nil {
		return Truncate(t), nil
	}

	for _, format := range FallbackFormats {
		if format == layout {
			continue
		}
		if t, err := time.Parse(format, cleaned); err == nil {
			return Truncate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", value)
}

// Truncate normalizes a time to midnight UTC so date comparisons ignore the
// time component and any source timezone.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Truncate(a).Equal(Truncate(b))
}

// DaysBetween returns the absolute number of whole days between two dates.
func DaysBetween(a, b time.Time) int {
	diff := Truncate(a).Sub(Truncate(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// Range is an inclusive date interval used as a candidate search window.
type Range struct {
	From time.Time
	To   time.Time
}

// WindowAround builds the search window [date-days, date+days].
func WindowAround(date time.Time, days int) Range {
	d := Truncate(date)
	return Range{
		From: d.AddDate(0, 0, -days),
		To:   d.AddDate(0, 0, days),
	}
}

// Widen returns a window with both edges pushed out by the given factor,
// measured from the window center.
func (r Range) Widen(factor int) Range {
	if factor <= 1 {
		return r
	}
	center := r.From.Add(r.To.Sub(r.From) / 2)
	half := r.To.Sub(center) * time.Duration(factor)
	return Range{
		From: Truncate(center.Add(-half)),
		To:   Truncate(center.Add(half)),
	}
}

// Contains reports whether the date falls inside the window, inclusive.
func (r Range) Contains(date time.Time) bool {
	d := Truncate(date)
	return !d.Before(r.From) && !d.After(r.To)
}

// Days returns the number of days from the window center to its edge.
func (r Range) Days() int {
	return DaysBetween(r.From, r.To) / 2
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.From.Format(LayoutISO), r.To.Format(LayoutISO))
}
