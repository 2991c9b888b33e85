package helper_util

import (
	"time"
)

// ParseTimeOr parses an RFC3339 value, returning fallback when s is empty.
func ParseTimeOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, s)
}
