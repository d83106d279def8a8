package parse

import (
	"fmt"
	"strings"
	"time"
)

// Period is a relative time window shorthand.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var periodSpan = map[Period]time.Duration{
	PeriodDay:   24 * time.Hour,
	PeriodWeek:  7 * 24 * time.Hour,
	PeriodMonth: 30 * 24 * time.Hour,
	PeriodYear:  365 * 24 * time.Hour,
}

// ParsePeriod validates a period shorthand. allowed restricts the accepted
// values; when empty every period is accepted.
func ParsePeriod(raw string, allowed ...Period) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := periodSpan[p]; !ok {
		return "", fmt.Errorf("invalid period %q", raw)
	}
	if len(allowed) == 0 {
		return p, nil
	}
	for _, a := range allowed {
		if a == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid period %q", raw)
}

// Start returns now minus the period span.
func (p Period) Start(now time.Time) time.Time {
	return now.Add(-periodSpan[p])
}
