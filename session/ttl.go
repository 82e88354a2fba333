package session

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var ttlUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseTTL converts "<n><unit>" (unit one of s, m, h, d) into a duration.
// Zero amounts and anything else fail with ErrInvalidTimeFormat.
func ParseTTL(value string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	unit := ttlUnits[m[2]]
	if n > int64(1<<62)/int64(unit) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTimeFormat, value)
	}
	return time.Duration(n) * unit, nil
}

// MustParseTTL is ParseTTL for constants. It panics on invalid input.
func MustParseTTL(value string) time.Duration {
	d, err := ParseTTL(value)
	if err != nil {
		panic(err)
	}
	return d
}
