package clock

import (
	"fmt"
	"time"
)

// FormatTime formats a remaining time for display ("1:02:03", "1:30",
// and tenths below ten seconds, e.g. "9.4").
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	totalSeconds := ms / 1000

	// For times less than 10 seconds, show decimal
	if ms < 10000 {
		tenths := (ms % 1000) / 100
		return fmt.Sprintf("%d.%d", totalSeconds, tenths)
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
