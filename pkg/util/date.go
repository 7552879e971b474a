package util

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used on every wire boundary.
const DateLayout = "2006-01-02"

// dateTimeLayout is the timestamp form the analytics backend emits for regime start dates.
const dateTimeLayout = "2006-01-02 15:04:05"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseDate parses a calendar day and truncates it to UTC midnight. Besides the two
// backend layouts it falls back to ParseTime.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, dateTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDay(t), true
		}
	}
	if t, ok := ParseTime(s); ok {
		return TruncateDay(t.UTC()), true
	}
	return time.Time{}, false
}

// TruncateDay drops the clock part and pins the value to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
