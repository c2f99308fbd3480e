package alerter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Unit patterns are tried in this order; the first match wins.
var (
	minutesPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:minutes|minute|min|m)$`)
	hoursPattern   = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:hours|hour|hr|h)$`)
	secondsPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:seconds|second|sec|s)$`)
)

// ParseCooldown converts a heterogeneous cooldown value into a
// duration. Accepted shapes: nil (use fallback), an existing
// time.Duration (returned unchanged), a number (minutes), or a string
// like "20m", "2h", "90s", "20 min" or a bare number (minutes). Any
// unparseable or non-positive value is logged and replaced by the
// fallback; this function never fails.
func ParseCooldown(log zerolog.Logger, value any, fallbackMinutes float64) time.Duration {
	fallback := minutesToDuration(fallbackMinutes)

	switch v := value.(type) {
	case nil:
		return fallback
	case time.Duration:
		return v
	case int:
		return numericMinutes(log, float64(v), fallback)
	case int64:
		return numericMinutes(log, float64(v), fallback)
	case float64:
		return numericMinutes(log, v, fallback)
	case string:
		return parseCooldownString(log, v, fallback)
	default:
		log.Warn().
			Interface("value", value).
			Msg("Unsupported cooldown value type, using fallback")
		return fallback
	}
}

func numericMinutes(log zerolog.Logger, minutes float64, fallback time.Duration) time.Duration {
	if minutes <= 0 {
		log.Warn().
			Float64("minutes", minutes).
			Msg("Non-positive cooldown, using fallback")
		return fallback
	}
	return minutesToDuration(minutes)
}

func parseCooldownString(log zerolog.Logger, raw string, fallback time.Duration) time.Duration {
	s := strings.ToLower(strings.TrimSpace(raw))

	type unitMatch struct {
		pattern *regexp.Regexp
		unit    time.Duration
	}
	for _, um := range []unitMatch{
		{minutesPattern, time.Minute},
		{hoursPattern, time.Hour},
		{secondsPattern, time.Second},
	} {
		m := um.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			log.Warn().
				Str("value", raw).
				Msg("Non-positive cooldown string, using fallback")
			return fallback
		}
		return time.Duration(n * float64(um.unit))
	}

	// No unit suffix: treat the bare string as minutes
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Warn().
			Str("value", raw).
			Msg("Unparseable cooldown string, using fallback")
		return fallback
	}
	return numericMinutes(log, n, fallback)
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
