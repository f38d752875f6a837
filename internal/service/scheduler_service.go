package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"sdlvbooker/internal/db"
)

// RuleStore is the slice of the rule repository the scheduler reads.
type RuleStore interface {
	GetEnabled() ([]db.Rule, error)
}

// SettingsStore provides the process-wide settings, re-read on every tick so
// dashboard edits apply without a restart.
type SettingsStore interface {
	Get(key, defaultValue string) (string, error)
}

// SchedulerService evaluates every enabled rule once per minute and pushes
// the due ones through the booking pipeline, one after the other. A tick
// that overlaps a still-running one is skipped entirely.
type SchedulerService struct {
	Rules    RuleStore
	Logs     AttemptChecker
	Settings SettingsStore
	Booking  *BookingService

	cron *cron.Cron
}

// AttemptChecker answers whether a rule/date pair was already attempted,
// whatever the outcome. Failures are terminal for an occurrence: recovery is
// the next weekly occurrence or a manual re-trigger, never an automatic
// retry.
type AttemptChecker interface {
	HasAttempt(ruleID int, targetDate string) (bool, error)
}

func NewSchedulerService(rules RuleStore, logs AttemptChecker, settings SettingsStore, booking *BookingService) *SchedulerService {
	return &SchedulerService{Rules: rules, Logs: logs, Settings: settings, Booking: booking}
}

// Start begins the one-minute tick loop.
func (s *SchedulerService) Start() {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s.cron.AddFunc("@every 1m", s.Tick)
	s.cron.Start()
	log.Println("[Scheduler] Started (tick every 1m)")
}

// Stop waits for an in-flight tick to finish, up to a hard 30s deadline so
// an open browser session cannot hang shutdown forever.
func (s *SchedulerService) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("[Scheduler] Stopped")
	case <-time.After(30 * time.Second):
		log.Println("[Scheduler] Shutdown deadline reached, abandoning in-flight tick")
	}
}

// Tick runs one evaluation pass. Exported so the book-now flow and tests
// share the exact scheduled semantics.
func (s *SchedulerService) Tick() {
	advanceDays, loc := s.config()
	now := time.Now().In(loc)

	rules, err := s.Rules.GetEnabled()
	if err != nil {
		log.Printf("[Scheduler] Failed to load rules: %v", err)
		return
	}

	for _, rule := range rules {
		s.evaluateRule(rule, now, advanceDays)
	}
}

// evaluateRule isolates one rule per tick: a panic or failure in one booking
// attempt must not block the rules after it.
func (s *SchedulerService) evaluateRule(rule db.Rule, now time.Time, advanceDays int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] Rule %d panicked: %v", rule.ID, r)
		}
	}()

	sched := ComputeSchedule(rule, now, advanceDays)
	today := now.Format("2006-01-02")

	// The previous occurrence first: if the process was down at its trigger
	// time it has no log yet and its date is still bookable. A rule created
	// after that trigger time never missed anything and must not retro-book.
	candidates := []Schedule{sched}
	if prev := sched.Previous(); rule.CreatedAt.Format("2006-01-02") <= prev.AttemptDate {
		candidates = []Schedule{prev, sched}
	}

	for _, cand := range candidates {
		if cand.TargetDate < today || !DueNow(rule, cand, now) {
			continue
		}
		attempted, err := s.Logs.HasAttempt(rule.ID, cand.TargetDate)
		if err != nil {
			log.Printf("[Scheduler] Attempt check failed for rule %d: %v", rule.ID, err)
			return
		}
		if attempted {
			continue
		}

		log.Printf("[Scheduler] Rule %d due: booking %s %s", rule.ID, cand.TargetDate, rule.TargetTime)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.Booking.RunScheduledAttempt(ctx, rule, cand.TargetDate)
		return
	}
}

func (s *SchedulerService) config() (advanceDays int, loc *time.Location) {
	advanceDays = 45
	if v, err := s.Settings.Get("booking_advance_days", "45"); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			advanceDays = n
		}
	}

	tz, _ := s.Settings.Get("timezone", "Europe/Paris")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[Scheduler] Invalid timezone %q, falling back to Europe/Paris", tz)
		loc, _ = time.LoadLocation("Europe/Paris")
		if loc == nil {
			loc = time.FixedZone("CET", 1*60*60)
		}
	}
	return advanceDays, loc
}
