package utils

import (
	"fmt"
	"strings"
	"time"
)

// DayNamesFR indexes French day names by time.Weekday (0 = Sunday).
var DayNamesFR = [7]string{"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"}

// ParseClock parses an HH:MM wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	if _, err := time.Parse("15:04", s); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	fmt.Sscanf(s, "%d:%d", &hour, &minute)
	return hour, minute, nil
}

// ClockMinutes converts HH:MM to minutes since midnight.
func ClockMinutes(s string) (int, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// FormatDateFR renders a YYYY-MM-DD date as "Lundi 17/03/2025".
func FormatDateFR(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %02d/%02d/%d", DayNamesFR[int(d.Weekday())], d.Day(), int(d.Month()), d.Year())
}

// FormatTimeFR renders "19:00" as "19h00".
func FormatTimeFR(clock string) string {
	return strings.Replace(clock, ":", "h", 1)
}

// FormatDurationFR renders minutes as "45 min", "1h" or "1h30".
func FormatDurationFR(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh%02d", minutes/60, minutes%60)
}
