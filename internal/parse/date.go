package parse

import (
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Date parses an ISO-8601 date or date-time. Values without an offset are
// read in loc. The second result reports whether raw carried only a date.
func Date(raw string, loc *time.Location) (time.Time, bool, error) {
	s := strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(dateOnly, s, loc); err == nil {
		return t, true, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", raw)
}

// RangeEnd parses an inclusive range end. A bare date extends to 23:59:59 of
// that day.
func RangeEnd(raw string, loc *time.Location) (time.Time, error) {
	t, bare, err := Date(raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if bare {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
