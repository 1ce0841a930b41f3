// Package timeutil converts wall-clock time-of-day strings into
// comparable integers and implements the interval overlap test used by
// booking conflict detection.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesSinceMidnight parses "HH:MM" into minutes since midnight.
// Accepts 00:00 through 23:59.
func MinutesSinceMidnight(t string) (int, error) {
	h, m, ok := strings.Cut(t, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", t)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", t, err)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", t, err)
	}
	total := hours*60 + minutes
	if hours < 0 || minutes < 0 || minutes > 59 || total < 0 || total >= 24*60 {
		return 0, fmt.Errorf("time %q out of range", t)
	}
	return total, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Exactly-touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
