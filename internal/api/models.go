package api

import "sdlvbooker/internal/service"

// Rule payloads

type CreateRuleRequest struct {
	DayOfWeek       *int     `json:"day_of_week"`
	TargetTime      string   `json:"target_time"`
	TriggerTime     string   `json:"trigger_time"`
	Duration        int      `json:"duration"`
	Activity        string   `json:"activity"`
	PlaygroundOrder []string `json:"playground_order"`
}

type UpdateRuleRequest struct {
	DayOfWeek       *int      `json:"day_of_week"`
	TargetTime      *string   `json:"target_time"`
	TriggerTime     *string   `json:"trigger_time"`
	Duration        *int      `json:"duration"`
	Enabled         *bool     `json:"enabled"`
	PlaygroundOrder *[]string `json:"playground_order"`
}

type RuleResponse struct {
	ID              int               `json:"id"`
	DayOfWeek       int               `json:"day_of_week"`
	TargetTime      string            `json:"target_time"`
	TriggerTime     string            `json:"trigger_time"`
	Duration        int               `json:"duration"`
	DurationLabel   string            `json:"duration_label"`
	Activity        string            `json:"activity"`
	PlaygroundOrder []string          `json:"playground_order"`
	Enabled         bool              `json:"enabled"`
	Next            *service.Schedule `json:"j45,omitempty"`
}

// Log payloads

type LogResponse struct {
	ID           int     `json:"id"`
	RuleID       *int    `json:"rule_id"`
	TargetDate   string  `json:"target_date"`
	TargetTime   string  `json:"target_time"`
	BookedTime   *string `json:"booked_time"`
	Playground   *string `json:"playground"`
	Status       string  `json:"status"`
	BookingID    *string `json:"booking_id"`
	ErrorMessage *string `json:"error_message"`
	CreatedAt    string  `json:"created_at"`
}

type DeleteLogsRequest struct {
	IDs []int `json:"ids"`
}

// Booking payloads

type BookNowRequest struct {
	RuleID int    `json:"rule_id"`
	Date   string `json:"date"`
}

type BookManualRequest struct {
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	Duration       int    `json:"duration"`
	PlaygroundName string `json:"playgroundName"`
}

// Settings payloads

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CredentialsStatusResponse struct {
	Configured bool   `json:"configured"`
	Email      string `json:"email,omitempty"`
}

type SettingsRequest struct {
	BookingAdvanceDays *int    `json:"booking_advance_days"`
	Timezone           *string `json:"timezone"`
	TelegramBotToken   *string `json:"telegram_bot_token"`
	TelegramChatID     *string `json:"telegram_chat_id"`
}

type DashboardConfig struct {
	BookingAdvanceDays int    `json:"booking_advance_days"`
	Timezone           string `json:"timezone"`
	TelegramConfigured bool   `json:"telegram_configured"`
}

type DashboardStats struct {
	ActiveRules      int `json:"active_rules"`
	UpcomingBookings int `json:"upcoming_bookings"`
}

type DashboardResponse struct {
	Config     DashboardConfig `json:"config"`
	Stats      DashboardStats  `json:"stats"`
	Rules      []RuleResponse  `json:"rules"`
	RecentLogs []LogResponse   `json:"recent_logs"`
}

type TimeResponse struct {
	Now      string `json:"now"`
	Timezone string `json:"timezone"`
}
