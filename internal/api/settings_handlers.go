package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "sdlvbooker/internal/errors"
	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
)

type SettingsHandler struct {
	Settings *repository.SettingsRepository
	Notify   *service.NotifyService
	Provider service.SlotProvider
}

func NewSettingsHandler(settings *repository.SettingsRepository, notify *service.NotifyService, provider service.SlotProvider) *SettingsHandler {
	return &SettingsHandler{Settings: settings, Notify: notify, Provider: provider}
}

// UpdateCredentials stores the provider account and verifies it with a real
// login. The password is encrypted at rest; it is never returned by any
// endpoint.
func (h *SettingsHandler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "email and password are required"))
		return
	}
	if err := h.Settings.SetCredentials(req.Email, req.Password); err != nil {
		respondError(w, err)
		return
	}

	resp := map[string]any{"message": "credentials saved", "login_ok": true}
	if err := h.Provider.Authenticate(r.Context()); err != nil {
		resp["login_ok"] = false
		resp["login_error"] = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) CredentialsStatus(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Settings.GetCredentials()
	if err != nil {
		respondError(w, err)
		return
	}
	resp := CredentialsStatusResponse{Configured: creds != nil}
	if creds != nil {
		resp.Email = creds.Email
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}

	if req.BookingAdvanceDays != nil {
		if *req.BookingAdvanceDays <= 0 {
			respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "booking_advance_days must be positive"))
			return
		}
		if err := h.Settings.Set("booking_advance_days", strconv.Itoa(*req.BookingAdvanceDays)); err != nil {
			respondError(w, err)
			return
		}
	}
	if req.Timezone != nil {
		if err := h.Settings.Set("timezone", *req.Timezone); err != nil {
			respondError(w, err)
			return
		}
	}
	if req.TelegramBotToken != nil {
		if err := h.Settings.Set("telegram_bot_token", *req.TelegramBotToken); err != nil {
			respondError(w, err)
			return
		}
	}
	if req.TelegramChatID != nil {
		if err := h.Settings.Set("telegram_chat_id", *req.TelegramChatID); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "settings saved"})
}

// TelegramTest sends a fixed message through the configured bot so the user
// can check token and chat id without waiting for a booking.
func (h *SettingsHandler) TelegramTest(w http.ResponseWriter, r *http.Request) {
	if err := h.Notify.SendTest(); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadGateway, err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "test message sent"})
}
