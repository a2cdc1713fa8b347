package xapi

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders an elapsed time as an ISO-8601 duration with
// hour/minute/second precision. Sub-second remainders are truncated and the
// seconds component is always present, so a zero elapsed time is "PT0S".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var b strings.Builder
	b.WriteString("PT")
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	fmt.Fprintf(&b, "%dS", seconds)
	return b.String()
}
