package service

import (
	"time"

	"sdlvbooker/internal/db"
	"sdlvbooker/internal/utils"
)

// Schedule is the computed timing of a rule's next attempt: the date the
// user wants to play on and the day the engine is allowed to book it.
type Schedule struct {
	TargetDate       string `json:"target_date"`  // YYYY-MM-DD
	AttemptDate      string `json:"attempt_date"` // YYYY-MM-DD
	DaysUntilAttempt int    `json:"days_until_attempt"`
}

// ComputeSchedule resolves the next occurrence of the rule that is still
// ahead of its booking window: the earliest date matching rule.DayOfWeek that
// is at least advanceDays away. Its attempt date (target minus advanceDays)
// therefore falls between today and six days from now. The provider opens a
// date for booking advanceDays before it, so the attempt date is the first
// day the occurrence can be booked at all.
func ComputeSchedule(rule db.Rule, now time.Time, advanceDays int) Schedule {
	horizon := now.AddDate(0, 0, advanceDays)
	daysAhead := (rule.DayOfWeek - int(horizon.Weekday()) + 7) % 7

	target := horizon.AddDate(0, 0, daysAhead)
	attempt := target.AddDate(0, 0, -advanceDays)
	days := int(midnight(attempt).Sub(midnight(now)).Hours() / 24)

	return Schedule{
		TargetDate:       target.Format("2006-01-02"),
		AttemptDate:      attempt.Format("2006-01-02"),
		DaysUntilAttempt: days,
	}
}

// Previous shifts the schedule back one occurrence. The scheduler uses it to
// catch up on an attempt missed while the process was down: the previous
// occurrence is still bookable for almost a week after its window opened.
func (s Schedule) Previous() Schedule {
	return Schedule{
		TargetDate:       shiftDate(s.TargetDate, -7),
		AttemptDate:      shiftDate(s.AttemptDate, -7),
		DaysUntilAttempt: s.DaysUntilAttempt - 7,
	}
}

func shiftDate(date string, days int) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, days).Format("2006-01-02")
}

// DueNow reports whether the attempt may fire at tick time now. An attempt
// date in the past stays due: a server that was down at trigger time still
// books on the next tick, with the log table alone deciding whether the
// attempt already happened.
func DueNow(rule db.Rule, sched Schedule, now time.Time) bool {
	today := now.Format("2006-01-02")
	if today > sched.AttemptDate {
		return true
	}
	if today < sched.AttemptDate {
		return false
	}
	triggerMin, err := utils.ClockMinutes(rule.TriggerTime)
	if err != nil {
		triggerMin = 0
	}
	return now.Hour()*60+now.Minute() >= triggerMin
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
