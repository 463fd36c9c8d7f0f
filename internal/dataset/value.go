package dataset

// value.go - cell value coercion and stable formatting

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are the accepted input layouts for temporal coercion,
// tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// AsFloat coerces a cell value to a float64. Non-coercible values report
// ok=false and are treated as missing by callers.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsTime coerces a cell value to a timestamp. A value already typed as
// time.Time passes through; strings are parsed against the accepted layouts.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return ParseTimestamp(t)
	default:
		return time.Time{}, false
	}
}

// ParseTimestamp parses a string against the accepted layouts. The result is
// normalized to UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatValue renders a cell value as a stable string. Used by the record
// hash, so the mapping from value to string must never change for a given
// input.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}
