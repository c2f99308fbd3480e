package alerter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solwatch/solwatch/internal/config"
)

func clockAt(hour, minute int) time.Time {
	return time.Date(2025, 6, 15, hour, minute, 0, 0, time.UTC)
}

func TestInQuietWindowWrapsMidnight(t *testing.T) {
	window := config.QuietHoursConfig{Start: "22:00", End: "06:00"}

	assert.True(t, InQuietWindow(window, clockAt(23, 30)))
	assert.True(t, InQuietWindow(window, clockAt(2, 0)))
	assert.True(t, InQuietWindow(window, clockAt(22, 0)))
	assert.True(t, InQuietWindow(window, clockAt(6, 0)))
	assert.False(t, InQuietWindow(window, clockAt(12, 0)))
	assert.False(t, InQuietWindow(window, clockAt(21, 59)))
	assert.False(t, InQuietWindow(window, clockAt(6, 1)))
}

func TestInQuietWindowSameDay(t *testing.T) {
	window := config.QuietHoursConfig{Start: "09:00", End: "17:00"}

	assert.True(t, InQuietWindow(window, clockAt(12, 0)))
	assert.True(t, InQuietWindow(window, clockAt(9, 0)))
	assert.True(t, InQuietWindow(window, clockAt(17, 0)))
	assert.False(t, InQuietWindow(window, clockAt(20, 0)))
	assert.False(t, InQuietWindow(window, clockAt(8, 59)))
}

func TestInQuietWindowDisabledOrMalformed(t *testing.T) {
	assert.False(t, InQuietWindow(config.QuietHoursConfig{}, clockAt(12, 0)))
	assert.False(t, InQuietWindow(config.QuietHoursConfig{Start: "22:00"}, clockAt(23, 0)))
	assert.False(t, InQuietWindow(config.QuietHoursConfig{Start: "banana", End: "06:00"}, clockAt(23, 0)))
}
