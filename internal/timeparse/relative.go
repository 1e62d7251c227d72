// Package timeparse resolves the `from`/`to` date-window parameters of
// GET /search (spec §4.4 step 3) into absolute times, accepting RFC3339,
// bare unix-millis, and relative phrases like "2h ago" or "3d".
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

// Parse resolves a caller-supplied time string against now. Returns
// ok=false if s is empty or unparseable, in which case the caller should
// treat the bound as unset rather than error (spec: "from"/"to" are
// optional window edges, not required fields).
func Parse(s string, now time.Time) (time.Time, bool) {
	ss := strings.TrimSpace(s)
	if ss == "" {
		return time.Time{}, false
	}
	if strings.EqualFold(ss, "now") {
		return now, true
	}

	if t, err := time.Parse(time.RFC3339, ss); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", ss); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(ss, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}

	if d, ok := parseRelative(ss); ok {
		return now.Add(-d), true
	}
	return time.Time{}, false
}

// parseRelative handles "<n><unit>" or "<n><unit> ago" phrases, e.g. "2h",
// "30 minutes ago", "7d".
func parseRelative(s string) (time.Duration, bool) {
	ss := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "ago"))
	ss = strings.TrimSpace(ss)

	numStr, unitStr := ss, ""
	fields := strings.Fields(ss)
	if len(fields) >= 2 {
		numStr, unitStr = fields[0], fields[1]
	} else {
		for i, r := range ss {
			if r < '0' || r > '9' {
				numStr, unitStr = ss[:i], ss[i:]
				break
			}
		}
	}
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	unitStr = strings.TrimSpace(unitStr)
	if unitStr == "" {
		unitStr = "s"
	}

	switch unitStr {
	case "s", "sec", "secs", "second", "seconds":
		return time.Duration(n) * time.Second, true
	case "m", "min", "mins", "minute", "minutes":
		return time.Duration(n) * time.Minute, true
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(n) * time.Hour, true
	case "d", "day", "days":
		return time.Duration(n) * 24 * time.Hour, true
	case "w", "wk", "wks", "week", "weeks":
		return time.Duration(n) * 7 * 24 * time.Hour, true
	case "mo", "mon", "month", "months":
		return time.Duration(n) * 30 * 24 * time.Hour, true
	case "y", "yr", "yrs", "year", "years":
		return time.Duration(n) * 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
