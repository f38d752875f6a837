package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockMinutes(t *testing.T) {
	m, err := ClockMinutes("19:30")
	require.NoError(t, err)
	assert.Equal(t, 19*60+30, m)

	_, err = ClockMinutes("25:00")
	assert.Error(t, err)
	_, err = ClockMinutes("19h00")
	assert.Error(t, err)
	_, err = ClockMinutes("")
	assert.Error(t, err)
}

func TestFormatDateFR(t *testing.T) {
	assert.Equal(t, "Lundi 17/03/2025", FormatDateFR("2025-03-17"))
	assert.Equal(t, "Dimanche 16/03/2025", FormatDateFR("2025-03-16"))
	assert.Equal(t, "not-a-date", FormatDateFR("not-a-date"))
}

func TestFormatTimeFR(t *testing.T) {
	assert.Equal(t, "19h00", FormatTimeFR("19:00"))
	assert.Equal(t, "-", FormatTimeFR("-"))
}

func TestFormatDurationFR(t *testing.T) {
	assert.Equal(t, "45 min", FormatDurationFR(45))
	assert.Equal(t, "1h", FormatDurationFR(60))
	assert.Equal(t, "1h30", FormatDurationFR(90))
	assert.Equal(t, "2h05", FormatDurationFR(125))
}
