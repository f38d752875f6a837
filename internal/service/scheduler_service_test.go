package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdlvbooker/internal/db"
	"sdlvbooker/internal/entities"
)

func (l *fakeLogs) HasAttempt(ruleID int, targetDate string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findErr != nil {
		return false, l.findErr
	}
	for _, row := range l.rows {
		if row.RuleID != nil && *row.RuleID == ruleID && row.TargetDate == targetDate {
			return true, nil
		}
	}
	return false, nil
}

type fakeSettings struct {
	values map[string]string
}

func (s *fakeSettings) Get(key, defaultValue string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func newTestScheduler(logs *fakeLogs, provider *fakeProvider) *SchedulerService {
	booking, _ := newTestService(provider, &fakeBridge{}, logs)
	return NewSchedulerService(nil, logs, &fakeSettings{}, booking)
}

// schedulerRule is testRule created on 2025-03-01, so its first scheduled
// occurrence is Monday 2025-04-21 (window opens 2025-03-07).
func schedulerRule(t *testing.T) db.Rule {
	rule := testRule()
	rule.CreatedAt = mustTime(t, "2025-03-01 00:00")
	return rule
}

func TestEvaluateRuleBooksWhenDue(t *testing.T) {
	logs := &fakeLogs{}
	provider := &fakeProvider{slots: oneSlot()}
	sched := newTestScheduler(logs, provider)

	// 2025-03-07 is the attempt day for Monday 2025-04-21 at 45 days ahead.
	sched.evaluateRule(schedulerRule(t), mustTime(t, "2025-03-07 00:05"), 45)

	require.Equal(t, 1, provider.createCalls)
	rows := logs.statuses()
	require.NotEmpty(t, rows)
	assert.Equal(t, entities.StatusSuccess, rows[len(rows)-1])
	assert.Equal(t, "2025-04-21", logs.rows[0].TargetDate)
}

func TestEvaluateRuleBeforeTriggerDoesNothing(t *testing.T) {
	logs := &fakeLogs{}
	provider := &fakeProvider{slots: oneSlot()}
	sched := newTestScheduler(logs, provider)

	sched.evaluateRule(schedulerRule(t), mustTime(t, "2025-03-07 00:04"), 45)

	assert.Equal(t, 0, provider.searchCalls)
	assert.Empty(t, logs.statuses())
}

func TestEvaluateRuleSkipsAttemptedTarget(t *testing.T) {
	ruleID := 5
	logs := &fakeLogs{}
	require.NoError(t, logs.Insert(&db.AttemptLog{
		RuleID: &ruleID, TargetDate: "2025-04-21", TargetTime: "19:00", Status: entities.StatusNoSlots,
	}))
	provider := &fakeProvider{slots: oneSlot()}
	sched := newTestScheduler(logs, provider)

	// A failed outcome is terminal for the occurrence: no retry the same day.
	sched.evaluateRule(schedulerRule(t), mustTime(t, "2025-03-07 12:00"), 45)

	assert.Equal(t, 0, provider.searchCalls)
}

func TestEvaluateRuleCatchesUpMissedOccurrence(t *testing.T) {
	logs := &fakeLogs{}
	provider := &fakeProvider{slots: oneSlot()}
	sched := newTestScheduler(logs, provider)

	// One day after the 2025-04-21 window opened, nothing logged: the engine
	// was down at trigger time. The occurrence fires now, once.
	sched.evaluateRule(schedulerRule(t), mustTime(t, "2025-03-08 09:00"), 45)

	require.Equal(t, 1, provider.createCalls)
	assert.Equal(t, "2025-04-21", logs.rows[0].TargetDate)

	// Second pass: the catch-up is logged, the next occurrence not due yet.
	sched.evaluateRule(schedulerRule(t), mustTime(t, "2025-03-08 09:01"), 45)
	assert.Equal(t, 1, provider.createCalls)
}

func TestSchedulerConfigDefaults(t *testing.T) {
	s := NewSchedulerService(nil, nil, &fakeSettings{}, nil)
	advanceDays, loc := s.config()
	assert.Equal(t, 45, advanceDays)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestSchedulerConfigOverrides(t *testing.T) {
	s := NewSchedulerService(nil, nil, &fakeSettings{values: map[string]string{
		"booking_advance_days": "30",
		"timezone":             "Europe/Madrid",
	}}, nil)
	advanceDays, loc := s.config()
	assert.Equal(t, 30, advanceDays)
	assert.Equal(t, "Europe/Madrid", loc.String())
}

func TestSchedulerConfigBadValuesFallBack(t *testing.T) {
	s := NewSchedulerService(nil, nil, &fakeSettings{values: map[string]string{
		"booking_advance_days": "-3",
		"timezone":             "Mars/Olympus",
	}}, nil)
	advanceDays, loc := s.config()
	assert.Equal(t, 45, advanceDays)
	assert.Equal(t, "Europe/Paris", loc.String())
}
