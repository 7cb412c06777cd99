package rag

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ragerrors "github.com/localrag/ragmcp/internal/errors"
)

// ttlPattern matches a whole-number magnitude and a single calendar unit.
// Fractional ("1.5d") and signed ("-1d") values are rejected by construction
// since \d+ admits neither.
var ttlPattern = regexp.MustCompile(`^(\d+)([dhmy])$`)

// ParseTTL resolves a TTL string against now. "permanent" (or empty) means
// no expiry. Month and year units are calendar units, not fixed-length
// windows: a month TTL clamps the day to the target month's length, so
// "1m" from Jan 31 lands on Feb 28 (or 29); year units use time.AddDate.
func ParseTTL(ttl string, now time.Time) (*time.Time, error) {
	if ttl == "" || ttl == "permanent" {
		return nil, nil
	}

	m := ttlPattern.FindStringSubmatch(ttl)
	if m == nil {
		return nil, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidTTL,
			fmt.Sprintf("invalid ttl %q: expected \"permanent\" or a whole number followed by d, h, m, or y", ttl), nil)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidTTL,
			fmt.Sprintf("invalid ttl %q: magnitude out of range", ttl), err)
	}

	var expires time.Time
	switch m[2] {
	case "d":
		expires = now.AddDate(0, 0, n)
	case "h":
		expires = now.Add(time.Duration(n) * time.Hour)
	case "m":
		// time.AddDate would roll Jan 31 + 1 month over into March; clamp
		// the day to the target month's last day instead.
		first := time.Date(now.Year(), now.Month()+time.Month(n), 1,
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
		day := now.Day()
		if last := first.AddDate(0, 1, -1).Day(); day > last {
			day = last
		}
		expires = time.Date(first.Year(), first.Month(), day,
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
	case "y":
		expires = now.AddDate(n, 0, 0)
	}
	return &expires, nil
}
