package db

import "time"

// Rule is a weekly recurring booking intent. The engine only ever reads
// rules; creation and edits come from the dashboard API.
type Rule struct {
	ID              int
	DayOfWeek       int    // 0 = Sunday .. 6 = Saturday
	TargetTime      string // HH:MM, club timezone
	TriggerTime     string // HH:MM, earliest wall-clock time the attempt may fire
	Duration        int    // minutes
	Activity        string
	PlaygroundOrder []string // preferred playgrounds, nil means no preference
	Enabled         bool
	CreatedAt       time.Time
}

// AttemptLog is an immutable record of one booking attempt, automatic or
// manual. RuleID is nil for manual attempts.
type AttemptLog struct {
	ID           int
	RuleID       *int
	TargetDate   string // YYYY-MM-DD
	TargetTime   string // HH:MM
	BookedTime   *string
	Playground   *string
	Status       string
	BookingID    *string
	ErrorMessage *string
	CreatedAt    time.Time
}
