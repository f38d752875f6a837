package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sdlvbooker/internal/entities"
	apperrors "sdlvbooker/internal/errors"
	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
	"sdlvbooker/internal/utils"
)

type BookingHandler struct {
	Booking *service.BookingService
	Logs    *repository.LogRepository
}

func NewBookingHandler(booking *service.BookingService, logs *repository.LogRepository) *BookingHandler {
	return &BookingHandler{Booking: booking, Logs: logs}
}

// SearchSlots answers the dashboard's availability explorer:
// GET /api/slots?date=YYYY-MM-DD&from=HH:MM&to=HH:MM&duration=90
func (h *BookingHandler) SearchSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	duration := 0
	if v := q.Get("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "duration must be positive minutes"))
			return
		}
		duration = n
	}

	slots, err := h.Booking.SearchSlots(r.Context(), date, q.Get("from"), q.Get("to"), duration)
	if err != nil {
		respondError(w, err)
		return
	}
	if slots == nil {
		slots = []entities.Slot{}
	}
	respondJSON(w, http.StatusOK, slots)
}

// BookManual runs the pipeline for a slot the user picked by hand. No rule,
// no duplicate guard.
func (h *BookingHandler) BookManual(w http.ResponseWriter, r *http.Request) {
	var req BookManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	if _, err := utils.ClockMinutes(req.StartTime); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "startTime must be HH:MM"))
		return
	}
	if req.Duration <= 0 {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "duration must be positive minutes"))
		return
	}

	attempt := entities.AttemptRequest{
		TargetDate: req.Date,
		TargetTime: req.StartTime,
		Duration:   req.Duration,
	}
	if req.PlaygroundName != "" {
		attempt.PlaygroundOrder = []string{req.PlaygroundName}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	result := h.Booking.RunManualAttempt(ctx, attempt)
	respondJSON(w, http.StatusOK, result)
}

// ListBookings returns the provider's live view of upcoming reservations, so
// bookings made outside the engine show up too.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Booking.Provider.ListUpcoming(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if bookings == nil {
		bookings = []entities.Booking{}
	}
	respondJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["id"]
	if bookingID == "" {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "missing booking id"))
		return
	}
	result, err := h.Booking.Cancel(r.Context(), bookingID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *BookingHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	logs, err := h.Logs.List(limit)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, logResponse(l))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) DeleteLogs(w http.ResponseWriter, r *http.Request) {
	var req DeleteLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, apperrors.NewHTTPError(http.StatusBadRequest, "ids must not be empty"))
		return
	}
	if err := h.Logs.Delete(req.IDs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logs deleted"})
}
