// Package timeutil formats server timestamps and durations for terminal
// output.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeFormat renders absolute times the way the CLI tables expect.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatUptime turns a Go duration string ("74h3m2s") into day-granular
// text ("3d 2h 3m 2s"). Unparseable input comes back untouched rather
// than erroring, since it came from a server we may be version-skewed
// against.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}

	total := int64(d.Seconds())
	parts := []struct {
		unit string
		size int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	var b strings.Builder
	for _, p := range parts {
		n := total / p.size
		total %= p.size
		if b.Len() == 0 && n == 0 && p.unit != "s" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", n, p.unit)
	}
	return b.String()
}

// FormatTime converts an RFC 3339 timestamp to local time in
// LocalTimeFormat, passing through anything that does not parse.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(LocalTimeFormat)
}
