package api

import (
	"net/http"
	"time"

	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
)

type DashboardHandler struct {
	Rules    *repository.RuleRepository
	Logs     *repository.LogRepository
	Settings *repository.SettingsRepository
}

func NewDashboardHandler(rules *repository.RuleRepository, logs *repository.LogRepository, settings *repository.SettingsRepository) *DashboardHandler {
	return &DashboardHandler{Rules: rules, Logs: logs, Settings: settings}
}

// Dashboard aggregates everything the main screen shows in one round trip:
// config, rules with their computed schedules, and the latest attempt logs.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	advanceDays, loc := schedulingConfig(h.Settings)
	now := time.Now().In(loc)

	rules, err := h.Rules.GetAll()
	if err != nil {
		respondError(w, err)
		return
	}
	logs, err := h.Logs.List(20)
	if err != nil {
		respondError(w, err)
		return
	}
	upcoming, err := h.Logs.UpcomingSuccesses(now.Format("2006-01-02"))
	if err != nil {
		respondError(w, err)
		return
	}
	token, err := h.Settings.Get("telegram_bot_token", "")
	if err != nil {
		respondError(w, err)
		return
	}
	chatID, _ := h.Settings.Get("telegram_chat_id", "")

	resp := DashboardResponse{
		Config: DashboardConfig{
			BookingAdvanceDays: advanceDays,
			Timezone:           loc.String(),
			TelegramConfigured: token != "" && chatID != "",
		},
		Stats:      DashboardStats{UpcomingBookings: len(upcoming)},
		Rules:      make([]RuleResponse, 0, len(rules)),
		RecentLogs: make([]LogResponse, 0, len(logs)),
	}
	for _, rule := range rules {
		if rule.Enabled {
			resp.Stats.ActiveRules++
		}
		sched := service.ComputeSchedule(rule, now, advanceDays)
		resp.Rules = append(resp.Rules, ruleResponse(rule, &sched))
	}
	for _, l := range logs {
		resp.RecentLogs = append(resp.RecentLogs, logResponse(l))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Time exposes the engine's clock in the club timezone. The frontend uses it
// to render countdowns that do not drift with the browser clock.
func (h *DashboardHandler) Time(w http.ResponseWriter, r *http.Request) {
	_, loc := schedulingConfig(h.Settings)
	respondJSON(w, http.StatusOK, TimeResponse{
		Now:      time.Now().In(loc).Format(time.RFC3339),
		Timezone: loc.String(),
	})
}
