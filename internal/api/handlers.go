package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"sdlvbooker/internal/db"
	apperrors "sdlvbooker/internal/errors"
	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
	"sdlvbooker/internal/utils"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError maps an *apperrors.HTTPError to its status code; anything else
// is a 500 with the message logged rather than leaked.
func respondError(w http.ResponseWriter, err error) {
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		respondJSON(w, httpErr.Code, map[string]string{"error": httpErr.Message})
		return
	}
	log.Printf("[API] Internal error: %v", err)
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func ruleResponse(rule db.Rule, sched *service.Schedule) RuleResponse {
	return RuleResponse{
		ID:              rule.ID,
		DayOfWeek:       rule.DayOfWeek,
		TargetTime:      rule.TargetTime,
		TriggerTime:     rule.TriggerTime,
		Duration:        rule.Duration,
		DurationLabel:   utils.FormatDurationFR(rule.Duration),
		Activity:        rule.Activity,
		PlaygroundOrder: rule.PlaygroundOrder,
		Enabled:         rule.Enabled,
		Next:            sched,
	}
}

func logResponse(l db.AttemptLog) LogResponse {
	return LogResponse{
		ID:           l.ID,
		RuleID:       l.RuleID,
		TargetDate:   l.TargetDate,
		TargetTime:   l.TargetTime,
		BookedTime:   l.BookedTime,
		Playground:   l.Playground,
		Status:       l.Status,
		BookingID:    l.BookingID,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
}

// schedulingConfig reads the settings every rule schedule depends on, with
// the same fallbacks the scheduler applies.
func schedulingConfig(settings *repository.SettingsRepository) (advanceDays int, loc *time.Location) {
	advanceDays = 45
	if v, err := settings.Get("booking_advance_days", "45"); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			advanceDays = n
		}
	}
	tz, _ := settings.Get("timezone", "Europe/Paris")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation("Europe/Paris")
		if loc == nil {
			loc = time.FixedZone("CET", 1*60*60)
		}
	}
	return advanceDays, loc
}
