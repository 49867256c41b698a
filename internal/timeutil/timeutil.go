// Package timeutil converts between the millisecond-epoch timestamps used
// inside instrument recordings and time.Time.
package timeutil

import (
	"fmt"
	"strconv"
	"time"
)

// FromMillis converts a millisecond-epoch timestamp to UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ToMillis converts a time to a millisecond-epoch timestamp.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FormatMillis renders a millisecond-epoch timestamp as RFC 3339 with
// millisecond precision, in UTC.
func FormatMillis(ms int64) string {
	return FromMillis(ms).Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimestamp accepts either a bare millisecond-epoch integer or an
// RFC 3339 time string and returns the millisecond-epoch value.
func ParseTimestamp(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is neither a millisecond epoch nor RFC 3339: %w", s, err)
	}
	return t.UnixMilli(), nil
}
