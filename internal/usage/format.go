package usage

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "{h}h {m}m", or "{m}m" below one hour.
// Both parts are truncated, so 59 seconds renders as "0m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
