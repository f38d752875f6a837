package service

import (
	"context"
	"fmt"
	"log"

	"sdlvbooker/internal/db"
	"sdlvbooker/internal/entities"
	"sdlvbooker/internal/utils"
)

// SlotProvider is the thin contract the engine needs from the booking
// platform. The concrete client lives in internal/doinsport.
type SlotProvider interface {
	Authenticate(ctx context.Context) error
	SearchSlots(ctx context.Context, date, from, to string, duration int) ([]entities.Slot, error)
	CreateBooking(ctx context.Context, date string, slot entities.Slot, activity string) (*entities.CreatedBooking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	ListUpcoming(ctx context.Context) ([]entities.Booking, error)
}

// PaymentBridge completes the card authentication a created booking needs.
// A nil error means the payment is confirmed.
type PaymentBridge interface {
	Confirm(ctx context.Context, clientSecret string) error
}

// Notifier delivers one event per terminal attempt outcome. Implementations
// must never fail into the caller.
type Notifier interface {
	Notify(event entities.NotificationEvent)
}

// LogStore is the slice of the log repository the pipeline depends on.
type LogStore interface {
	Insert(l *db.AttemptLog) error
	FindBlocking(ruleID int, targetDate string) (*db.AttemptLog, error)
	FindByBookingID(bookingID string) (*db.AttemptLog, error)
}

// BookingService runs the booking pipeline: duplicate guard, slot search,
// selection, booking creation, payment confirmation, logging, notification.
// All invocations serialize through a single process-wide execution slot.
type BookingService struct {
	Provider SlotProvider
	Bridge   PaymentBridge
	Logs     LogStore
	Notifier Notifier

	slot *ExecutionSlot
}

func NewBookingService(provider SlotProvider, bridge PaymentBridge, logs LogStore, notifier Notifier) *BookingService {
	return &BookingService{
		Provider: provider,
		Bridge:   bridge,
		Logs:     logs,
		Notifier: notifier,
		slot:     NewExecutionSlot(),
	}
}

// RunScheduledAttempt executes the pipeline for a rule and its computed
// target date. The duplicate guard applies.
func (s *BookingService) RunScheduledAttempt(ctx context.Context, rule db.Rule, targetDate string) entities.AttemptResult {
	ruleID := rule.ID
	return s.Execute(ctx, entities.AttemptRequest{
		RuleID:          &ruleID,
		TargetDate:      targetDate,
		TargetTime:      rule.TargetTime,
		Duration:        rule.Duration,
		Activity:        rule.Activity,
		PlaygroundOrder: rule.PlaygroundOrder,
	})
}

// RunManualAttempt executes the pipeline for a dashboard-initiated booking.
// RuleID stays nil, so no duplicate guard beyond the provider's own checks.
func (s *BookingService) RunManualAttempt(ctx context.Context, req entities.AttemptRequest) entities.AttemptResult {
	req.RuleID = nil
	return s.Execute(ctx, req)
}

// Execute never returns an error: every failure becomes a terminal status on
// the result, and exactly one log row plus one notification is produced.
func (s *BookingService) Execute(ctx context.Context, req entities.AttemptRequest) entities.AttemptResult {
	s.slot.Acquire()
	defer s.slot.Release()

	result := entities.AttemptResult{
		TargetDate: req.TargetDate,
		TargetTime: req.TargetTime,
		Duration:   req.Duration,
	}

	// Duplicate guard, re-checked against the store inside the critical
	// section. Manual attempts are explicit user actions and bypass it.
	if req.RuleID != nil {
		blocking, err := s.Logs.FindBlocking(*req.RuleID, req.TargetDate)
		if err != nil {
			// Cannot tell whether the attempt already ran: proceeding
			// could double-book, so this attempt fails.
			result.Status = entities.StatusFailed
			result.ErrorMessage = fmt.Sprintf("duplicate guard unavailable: %v", err)
			return s.finish(req, result)
		}
		if blocking != nil {
			result.Status = entities.StatusSkipped
			result.ErrorMessage = fmt.Sprintf("already booked for %s (log #%d, %s)",
				req.TargetDate, blocking.ID, blocking.Status)
			return s.finish(req, result)
		}
	}

	slots, err := s.Provider.SearchSlots(ctx, req.TargetDate, req.From, req.To, req.Duration)
	if err != nil {
		result.Status = entities.StatusFailed
		result.ErrorMessage = err.Error()
		return s.finish(req, result)
	}
	if len(slots) == 0 {
		result.Status = entities.StatusNoSlots
		result.ErrorMessage = "Aucun créneau disponible"
		return s.finish(req, result)
	}

	chosen, ok := selectSlot(slots, req.TargetTime, req.Duration, req.PlaygroundOrder)
	if !ok {
		result.Status = entities.StatusNoSlots
		result.ErrorMessage = "Aucun créneau disponible"
		return s.finish(req, result)
	}
	result.BookedTime = chosen.StartAt
	result.Playground = chosen.Playground

	created, err := s.Provider.CreateBooking(ctx, req.TargetDate, chosen, req.Activity)
	if err != nil {
		result.Status = entities.StatusFailed
		result.ErrorMessage = err.Error()
		return s.finish(req, result)
	}
	result.BookingID = created.ID
	result.Price = created.Price

	// Interim row: from here on the booking exists on the provider side, so
	// a crash before the terminal row must not lead to a retry.
	interim := result
	interim.Status = entities.StatusBookingCreated
	if err := s.Logs.Insert(buildLog(req, interim)); err != nil {
		log.Printf("[Booking] Failed to write booking_created log: %v", err)
	}

	if err := s.Bridge.Confirm(ctx, created.PaymentClientSecret); err != nil {
		result.Status = entities.StatusPaymentFailed
		result.ErrorMessage = err.Error()
		return s.finish(req, result)
	}

	result.Status = entities.StatusSuccess
	result.ErrorMessage = ""
	log.Printf("[Booking] Success: %s at %s on %s (%d cents/pers)",
		result.Playground, result.BookedTime, result.TargetDate, result.Price)
	return s.finish(req, result)
}

// finish writes the terminal log row and fires the notification. Neither
// can change the result.
func (s *BookingService) finish(req entities.AttemptRequest, result entities.AttemptResult) entities.AttemptResult {
	if result.Status != entities.StatusSuccess {
		log.Printf("[Booking] %s: %s", result.Status, result.ErrorMessage)
	}
	if err := s.Logs.Insert(buildLog(req, result)); err != nil {
		log.Printf("[Booking] Failed to write %s log: %v", result.Status, err)
	}
	s.Notifier.Notify(entities.NotificationEvent{
		TargetDate:   result.TargetDate,
		TargetTime:   result.TargetTime,
		BookedTime:   result.BookedTime,
		Playground:   result.Playground,
		Status:       result.Status,
		ErrorMessage: result.ErrorMessage,
		Duration:     result.Duration,
	})
	return result
}

// Cancel cancels a previously booked slot on the provider and records a
// cancelled log row. The original success row is kept for audit.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) (entities.AttemptResult, error) {
	if err := s.Provider.CancelBooking(ctx, bookingID); err != nil {
		return entities.AttemptResult{}, err
	}

	result := entities.AttemptResult{
		Status:    entities.StatusCancelled,
		BookingID: bookingID,
	}
	var ruleID *int
	if prev, err := s.Logs.FindByBookingID(bookingID); err == nil && prev != nil {
		ruleID = prev.RuleID
		result.TargetDate = prev.TargetDate
		result.TargetTime = prev.TargetTime
		if prev.Playground != nil {
			result.Playground = *prev.Playground
		}
	}
	log.Printf("[Booking] Cancelled: %s on %s", bookingID, result.TargetDate)

	req := entities.AttemptRequest{RuleID: ruleID, TargetDate: result.TargetDate, TargetTime: result.TargetTime}
	if req.TargetTime == "" {
		req.TargetTime = "-"
		result.TargetTime = "-"
	}
	if err := s.Logs.Insert(buildLog(req, result)); err != nil {
		log.Printf("[Booking] Failed to write cancelled log: %v", err)
	}
	s.Notifier.Notify(entities.NotificationEvent{
		TargetDate: result.TargetDate,
		TargetTime: result.TargetTime,
		Playground: result.Playground,
		Status:     entities.StatusCancelled,
	})
	return result, nil
}

// SearchSlots is the manual search used by the dashboard.
func (s *BookingService) SearchSlots(ctx context.Context, date, from, to string, duration int) ([]entities.Slot, error) {
	return s.Provider.SearchSlots(ctx, date, from, to, duration)
}

func buildLog(req entities.AttemptRequest, result entities.AttemptResult) *db.AttemptLog {
	l := &db.AttemptLog{
		RuleID:     req.RuleID,
		TargetDate: result.TargetDate,
		TargetTime: result.TargetTime,
		Status:     result.Status,
	}
	if result.BookedTime != "" {
		l.BookedTime = &result.BookedTime
	}
	if result.Playground != "" {
		l.Playground = &result.Playground
	}
	if result.BookingID != "" {
		l.BookingID = &result.BookingID
	}
	if result.ErrorMessage != "" {
		l.ErrorMessage = &result.ErrorMessage
	}
	return l
}

// selectSlot walks the playground preference order (provider order when the
// rule has none) and inside each playground picks the slot closest to the
// target time: exact match first, then the earliest start after it, then the
// latest start before it. Slot duration must match when one is requested.
func selectSlot(slots []entities.Slot, targetTime string, durationMin int, preference []string) (entities.Slot, bool) {
	targetMin, err := utils.ClockMinutes(targetTime)
	if err != nil {
		return entities.Slot{}, false
	}

	byPlayground := map[string][]entities.Slot{}
	var providerOrder []string
	for _, s := range slots {
		if durationMin > 0 && s.Duration != durationMin*60 {
			continue
		}
		if _, seen := byPlayground[s.Playground]; !seen {
			providerOrder = append(providerOrder, s.Playground)
		}
		byPlayground[s.Playground] = append(byPlayground[s.Playground], s)
	}

	order := preference
	if len(order) == 0 {
		order = providerOrder
	}

	for _, pg := range order {
		if best, ok := closestSlot(byPlayground[pg], targetMin); ok {
			return best, true
		}
	}
	return entities.Slot{}, false
}

func closestSlot(slots []entities.Slot, targetMin int) (entities.Slot, bool) {
	var after, before *entities.Slot
	var afterMin, beforeMin int
	for i := range slots {
		m, err := utils.ClockMinutes(slots[i].StartAt)
		if err != nil {
			continue
		}
		switch {
		case m == targetMin:
			return slots[i], true
		case m > targetMin:
			if after == nil || m < afterMin {
				after, afterMin = &slots[i], m
			}
		default:
			if before == nil || m > beforeMin {
				before, beforeMin = &slots[i], m
			}
		}
	}
	if after != nil {
		return *after, true
	}
	if before != nil {
		return *before, true
	}
	return entities.Slot{}, false
}
