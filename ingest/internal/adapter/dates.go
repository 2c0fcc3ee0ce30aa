package adapter

import (
	"math"
	"strings"
	"time"
	_ "time/tzdata"
)

const dateKeyLayout = "2006-01-02"

// maxUnixMilli is 9999-12-31T23:59:59.999Z, the last instant a date key can render.
const maxUnixMilli = 253402300799999

// Timestamps without an offset are read as UTC.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseCreatedAt accepts ISO-8601 timestamps and "YYYY-MM-DD HH:mm:ss".
func parseCreatedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateKeyIn renders t as YYYY-MM-DD in the IANA zone tz. An empty or
// unresolvable zone falls back to the UTC date.
func dateKeyIn(t time.Time, tz string) string {
	if tz == "" || tz == "Local" {
		return t.UTC().Format(dateKeyLayout)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t.UTC().Format(dateKeyLayout)
	}
	return t.In(loc).Format(dateKeyLayout)
}

// fromUnixMilli converts an epoch-millisecond JSON number. Values that are
// not finite, negative, or past year 9999 are rejected.
func fromUnixMilli(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || ms < 0 || ms > maxUnixMilli {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
