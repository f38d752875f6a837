package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdlvbooker/internal/db"
	"sdlvbooker/internal/entities"
)

type fakeProvider struct {
	mu          sync.Mutex
	slots       []entities.Slot
	searchErr   error
	searchDelay time.Duration
	createErr   error
	created     *entities.CreatedBooking

	searchCalls int
	createCalls int
}

func (p *fakeProvider) Authenticate(ctx context.Context) error { return nil }

func (p *fakeProvider) SearchSlots(ctx context.Context, date, from, to string, duration int) ([]entities.Slot, error) {
	p.mu.Lock()
	p.searchCalls++
	delay := p.searchDelay
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return p.slots, p.searchErr
}

func (p *fakeProvider) CreateBooking(ctx context.Context, date string, slot entities.Slot, activity string) (*entities.CreatedBooking, error) {
	p.mu.Lock()
	p.createCalls++
	p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.created != nil {
		return p.created, nil
	}
	return &entities.CreatedBooking{ID: "bk-1", Price: 1200, PaymentClientSecret: "pi_secret"}, nil
}

func (p *fakeProvider) CancelBooking(ctx context.Context, bookingID string) error { return nil }

func (p *fakeProvider) ListUpcoming(ctx context.Context) ([]entities.Booking, error) {
	return nil, nil
}

type fakeBridge struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (b *fakeBridge) Confirm(ctx context.Context, clientSecret string) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.err
}

type fakeLogs struct {
	mu      sync.Mutex
	rows    []db.AttemptLog
	nextID  int
	findErr error
}

func (l *fakeLogs) Insert(row *db.AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	row.ID = l.nextID
	row.CreatedAt = time.Now()
	l.rows = append(l.rows, *row)
	return nil
}

func (l *fakeLogs) FindBlocking(ruleID int, targetDate string) (*db.AttemptLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findErr != nil {
		return nil, l.findErr
	}
	for i := len(l.rows) - 1; i >= 0; i-- {
		row := l.rows[i]
		if row.RuleID != nil && *row.RuleID == ruleID && row.TargetDate == targetDate &&
			(row.Status == entities.StatusSuccess || row.Status == entities.StatusBookingCreated) {
			return &row, nil
		}
	}
	return nil, nil
}

func (l *fakeLogs) FindByBookingID(bookingID string) (*db.AttemptLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.rows) - 1; i >= 0; i-- {
		if l.rows[i].BookingID != nil && *l.rows[i].BookingID == bookingID {
			row := l.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (l *fakeLogs) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.rows))
	for i, row := range l.rows {
		out[i] = row.Status
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []entities.NotificationEvent
}

func (n *fakeNotifier) Notify(event entities.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func newTestService(provider *fakeProvider, bridge *fakeBridge, logs *fakeLogs) (*BookingService, *fakeNotifier) {
	notifier := &fakeNotifier{}
	return NewBookingService(provider, bridge, logs, notifier), notifier
}

func testRule() db.Rule {
	return db.Rule{ID: 5, DayOfWeek: 1, TargetTime: "19:00", TriggerTime: "00:05", Duration: 90, Activity: "foot"}
}

func oneSlot() []entities.Slot {
	return []entities.Slot{{StartAt: "19:00", Duration: 90 * 60, Price: 1200, PlaygroundID: "pg-3", Playground: "Foot 3"}}
}

func TestExecuteSuccess(t *testing.T) {
	provider := &fakeProvider{slots: oneSlot()}
	bridge := &fakeBridge{}
	logs := &fakeLogs{}
	svc, notifier := newTestService(provider, bridge, logs)

	result := svc.RunScheduledAttempt(context.Background(), testRule(), "2025-03-17")

	assert.Equal(t, entities.StatusSuccess, result.Status)
	assert.Equal(t, "19:00", result.BookedTime)
	assert.Equal(t, "Foot 3", result.Playground)
	assert.Equal(t, "bk-1", result.BookingID)
	assert.Equal(t, 1200, result.Price)

	// Interim row before payment, terminal row after.
	assert.Equal(t, []string{entities.StatusBookingCreated, entities.StatusSuccess}, logs.statuses())
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, 1, bridge.calls)
}

func TestExecuteNoSlots(t *testing.T) {
	provider := &fakeProvider{}
	bridge := &fakeBridge{}
	logs := &fakeLogs{}
	svc, notifier := newTestService(provider, bridge, logs)

	result := svc.RunScheduledAttempt(context.Background(), testRule(), "2025-03-17")

	assert.Equal(t, entities.StatusNoSlots, result.Status)
	assert.Equal(t, 0, provider.createCalls)
	assert.Equal(t, 0, bridge.calls)
	assert.Equal(t, []string{entities.StatusNoSlots}, logs.statuses())
	assert.Equal(t, 1, notifier.count())
}

func TestExecutePaymentFailedKeepsBookingID(t *testing.T) {
	provider := &fakeProvider{slots: oneSlot()}
	bridge := &fakeBridge{err: fmt.Errorf("card declined")}
	logs := &fakeLogs{}
	svc, _ := newTestService(provider, bridge, logs)

	result := svc.RunScheduledAttempt(context.Background(), testRule(), "2025-03-17")

	assert.Equal(t, entities.StatusPaymentFailed, result.Status)
	assert.Equal(t, "bk-1", result.BookingID, "booking reference must survive a failed payment")
	assert.Equal(t, "card declined", result.ErrorMessage)
	assert.Equal(t, []string{entities.StatusBookingCreated, entities.StatusPaymentFailed}, logs.statuses())
}

func TestExecuteDuplicateGuardSkips(t *testing.T) {
	ruleID := 5
	logs := &fakeLogs{}
	require.NoError(t, logs.Insert(&db.AttemptLog{
		RuleID: &ruleID, TargetDate: "2025-03-17", TargetTime: "19:00", Status: entities.StatusSuccess,
	}))

	provider := &fakeProvider{slots: oneSlot()}
	bridge := &fakeBridge{}
	svc, _ := newTestService(provider, bridge, logs)

	result := svc.RunScheduledAttempt(context.Background(), testRule(), "2025-03-17")

	assert.Equal(t, entities.StatusSkipped, result.Status)
	assert.Equal(t, 0, provider.searchCalls)
	assert.Equal(t, 0, bridge.calls)
}

func TestExecuteGuardStoreFailureIsFatal(t *testing.T) {
	logs := &fakeLogs{findErr: fmt.Errorf("connection refused")}
	provider := &fakeProvider{slots: oneSlot()}
	svc, _ := newTestService(provider, &fakeBridge{}, logs)

	result := svc.RunScheduledAttempt(context.Background(), testRule(), "2025-03-17")

	assert.Equal(t, entities.StatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "duplicate guard unavailable")
	assert.Equal(t, 0, provider.searchCalls, "must not book when dedup state is unknown")
}

func TestExecuteManualBypassesGuard(t *testing.T) {
	ruleID := 5
	logs := &fakeLogs{}
	require.NoError(t, logs.Insert(&db.AttemptLog{
		RuleID: &ruleID, TargetDate: "2025-03-17", TargetTime: "19:00", Status: entities.StatusSuccess,
	}))

	provider := &fakeProvider{slots: oneSlot()}
	svc, _ := newTestService(provider, &fakeBridge{}, logs)

	result := svc.RunManualAttempt(context.Background(), entities.AttemptRequest{
		TargetDate: "2025-03-17", TargetTime: "19:00", Duration: 90,
	})
	assert.Equal(t, entities.StatusSuccess, result.Status)
}

func TestExecuteConcurrentSameTarget(t *testing.T) {
	provider := &fakeProvider{slots: oneSlot(), searchDelay: 100 * time.Millisecond}
	logs := &fakeLogs{}
	svc, _ := newTestService(provider, &fakeBridge{}, logs)
	rule := testRule()

	results := make(chan entities.AttemptResult, 2)
	go func() {
		results <- svc.RunScheduledAttempt(context.Background(), rule, "2025-03-17")
	}()
	time.Sleep(50 * time.Millisecond)
	go func() {
		results <- svc.RunScheduledAttempt(context.Background(), rule, "2025-03-17")
	}()

	got := map[string]int{}
	for i := 0; i < 2; i++ {
		got[(<-results).Status]++
	}
	assert.Equal(t, map[string]int{entities.StatusSuccess: 1, entities.StatusSkipped: 1}, got)
	assert.Equal(t, 1, provider.createCalls)
}

func TestCancelRecordsLogRow(t *testing.T) {
	ruleID := 5
	logs := &fakeLogs{}
	booked := "bk-9"
	pg := "Foot 1"
	require.NoError(t, logs.Insert(&db.AttemptLog{
		RuleID: &ruleID, TargetDate: "2025-03-17", TargetTime: "19:00",
		Playground: &pg, BookingID: &booked, Status: entities.StatusSuccess,
	}))

	svc, notifier := newTestService(&fakeProvider{}, &fakeBridge{}, logs)

	result, err := svc.Cancel(context.Background(), "bk-9")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, result.Status)
	assert.Equal(t, "2025-03-17", result.TargetDate)
	assert.Equal(t, "Foot 1", result.Playground)

	statuses := logs.statuses()
	assert.Equal(t, entities.StatusSuccess, statuses[0], "original success row untouched")
	assert.Equal(t, entities.StatusCancelled, statuses[1])
	assert.Equal(t, 1, notifier.count())
}

func TestSelectSlot(t *testing.T) {
	slots := []entities.Slot{
		{StartAt: "18:00", Duration: 90 * 60, Playground: "Foot 1"},
		{StartAt: "20:00", Duration: 90 * 60, Playground: "Foot 1"},
		{StartAt: "19:00", Duration: 60 * 60, Playground: "Foot 1"}, // wrong duration
		{StartAt: "19:00", Duration: 90 * 60, Playground: "Foot 3"},
	}

	t.Run("exact match wins inside preferred playground", func(t *testing.T) {
		got, ok := selectSlot(slots, "19:00", 90, []string{"Foot 3", "Foot 1"})
		require.True(t, ok)
		assert.Equal(t, "Foot 3", got.Playground)
		assert.Equal(t, "19:00", got.StartAt)
	})

	t.Run("preference order beats closeness", func(t *testing.T) {
		got, ok := selectSlot(slots, "19:00", 90, []string{"Foot 1", "Foot 3"})
		require.True(t, ok)
		assert.Equal(t, "Foot 1", got.Playground)
		// No exact 90-minute 19:00 slot on Foot 1: earliest after wins.
		assert.Equal(t, "20:00", got.StartAt)
	})

	t.Run("latest before when nothing after", func(t *testing.T) {
		only := []entities.Slot{
			{StartAt: "17:00", Duration: 90 * 60, Playground: "Foot 1"},
			{StartAt: "18:30", Duration: 90 * 60, Playground: "Foot 1"},
		}
		got, ok := selectSlot(only, "19:00", 90, nil)
		require.True(t, ok)
		assert.Equal(t, "18:30", got.StartAt)
	})

	t.Run("duration mismatch everywhere", func(t *testing.T) {
		_, ok := selectSlot(slots, "19:00", 120, nil)
		assert.False(t, ok)
	})

	t.Run("unknown preferred playground falls through", func(t *testing.T) {
		got, ok := selectSlot(slots, "19:00", 90, []string{"Padel 1", "Foot 3"})
		require.True(t, ok)
		assert.Equal(t, "Foot 3", got.Playground)
	})
}
