package alerter

import (
	"time"

	"github.com/solwatch/solwatch/internal/config"
)

// InQuietWindow reports whether now falls inside the daily wall-clock
// window [start, end], both "HH:MM". A window whose start is later than
// its end wraps past midnight. Boundaries are inclusive. A malformed
// window is treated as not quiet.
func InQuietWindow(window config.QuietHoursConfig, now time.Time) bool {
	if !window.Enabled() {
		return false
	}

	start, err := minuteOfDay(window.Start)
	if err != nil {
		return false
	}
	end, err := minuteOfDay(window.End)
	if err != nil {
		return false
	}

	cur := now.Hour()*60 + now.Minute()

	if start <= end {
		return start <= cur && cur <= end
	}
	// Window crosses midnight
	return cur >= start || cur <= end
}

func minuteOfDay(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
