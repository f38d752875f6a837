package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sdlvbooker/internal/db"
	apperrors "sdlvbooker/internal/errors"
	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
	"sdlvbooker/internal/utils"
)

type RuleHandler struct {
	Rules    *repository.RuleRepository
	Settings *repository.SettingsRepository
	Booking  *service.BookingService
}

func NewRuleHandler(rules *repository.RuleRepository, settings *repository.SettingsRepository, booking *service.BookingService) *RuleHandler {
	return &RuleHandler{Rules: rules, Settings: settings, Booking: booking}
}

func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.GetAll()
	if err != nil {
		respondError(w, err)
		return
	}
	advanceDays, loc := schedulingConfig(h.Settings)
	now := time.Now().In(loc)

	out := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		sched := service.ComputeSchedule(rule, now, advanceDays)
		out = append(out, ruleResponse(rule, &sched))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if err := validateCreateRule(req); err != nil {
		respondError(w, err)
		return
	}
	if req.TriggerTime == "" {
		req.TriggerTime = "00:05"
	}

	rule, err := h.Rules.Create(&db.Rule{
		DayOfWeek:       *req.DayOfWeek,
		TargetTime:      req.TargetTime,
		TriggerTime:     req.TriggerTime,
		Duration:        req.Duration,
		Activity:        req.Activity,
		PlaygroundOrder: req.PlaygroundOrder,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ruleResponse(*rule, nil))
}

func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid rule id"))
		return
	}
	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if err := validateUpdateRule(req); err != nil {
		respondError(w, err)
		return
	}
	if _, err := h.Rules.GetByID(id); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusNotFound, "rule not found"))
		return
	}

	rule, err := h.Rules.Update(id, repository.RuleUpdate{
		DayOfWeek:       req.DayOfWeek,
		TargetTime:      req.TargetTime,
		TriggerTime:     req.TriggerTime,
		Duration:        req.Duration,
		Enabled:         req.Enabled,
		PlaygroundOrder: req.PlaygroundOrder,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ruleResponse(*rule, nil))
}

func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid rule id"))
		return
	}
	if _, err := h.Rules.GetByID(id); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusNotFound, "rule not found"))
		return
	}
	if err := h.Rules.Delete(id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "rule deleted"})
}

// BookNow forces one immediate attempt for a rule, with the duplicate guard
// still in effect. The date defaults to the rule's next computed target date.
func (h *RuleHandler) BookNow(w http.ResponseWriter, r *http.Request) {
	var req BookNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	rule, err := h.Rules.GetByID(req.RuleID)
	if err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusNotFound, "rule not found"))
		return
	}

	date := req.Date
	if date == "" {
		advanceDays, loc := schedulingConfig(h.Settings)
		date = service.ComputeSchedule(*rule, time.Now().In(loc), advanceDays).TargetDate
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid date (want YYYY-MM-DD)"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	result := h.Booking.RunScheduledAttempt(ctx, *rule, date)
	respondJSON(w, http.StatusOK, result)
}

func validateCreateRule(req CreateRuleRequest) error {
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		return apperrors.NewHTTPError(http.StatusBadRequest, "day_of_week must be 0 (Sunday) to 6 (Saturday)")
	}
	if _, err := utils.ClockMinutes(req.TargetTime); err != nil {
		return apperrors.NewHTTPError(http.StatusBadRequest, "target_time must be HH:MM")
	}
	if req.TriggerTime != "" {
		if _, err := utils.ClockMinutes(req.TriggerTime); err != nil {
			return apperrors.NewHTTPError(http.StatusBadRequest, "trigger_time must be HH:MM")
		}
	}
	if req.Duration <= 0 {
		return apperrors.NewHTTPError(http.StatusBadRequest, "duration must be positive minutes")
	}
	return nil
}

func validateUpdateRule(req UpdateRuleRequest) error {
	if req.DayOfWeek != nil && (*req.DayOfWeek < 0 || *req.DayOfWeek > 6) {
		return apperrors.NewHTTPError(http.StatusBadRequest, "day_of_week must be 0 (Sunday) to 6 (Saturday)")
	}
	if req.TargetTime != nil {
		if _, err := utils.ClockMinutes(*req.TargetTime); err != nil {
			return apperrors.NewHTTPError(http.StatusBadRequest, "target_time must be HH:MM")
		}
	}
	if req.TriggerTime != nil {
		if _, err := utils.ClockMinutes(*req.TriggerTime); err != nil {
			return apperrors.NewHTTPError(http.StatusBadRequest, "trigger_time must be HH:MM")
		}
	}
	if req.Duration != nil && *req.Duration <= 0 {
		return apperrors.NewHTTPError(http.StatusBadRequest, "duration must be positive minutes")
	}
	return nil
}
