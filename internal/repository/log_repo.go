package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sdlvbooker/internal/db"
	"sdlvbooker/internal/entities"
)

type LogRepository struct {
	DB *sql.DB
}

func NewLogRepository(database *sql.DB) *LogRepository {
	return &LogRepository{DB: database}
}

const logColumns = `id, rule_id, target_date, target_time, booked_time, playground, status, booking_id, error_message, created_at`

func scanLog(row interface{ Scan(...any) error }) (*db.AttemptLog, error) {
	var l db.AttemptLog
	var ruleID sql.NullInt64
	var bookedTime, playground, bookingID, errMsg sql.NullString
	err := row.Scan(&l.ID, &ruleID, &l.TargetDate, &l.TargetTime, &bookedTime,
		&playground, &l.Status, &bookingID, &errMsg, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ruleID.Valid {
		id := int(ruleID.Int64)
		l.RuleID = &id
	}
	if bookedTime.Valid {
		l.BookedTime = &bookedTime.String
	}
	if playground.Valid {
		l.Playground = &playground.String
	}
	if bookingID.Valid {
		l.BookingID = &bookingID.String
	}
	if errMsg.Valid {
		l.ErrorMessage = &errMsg.String
	}
	return &l, nil
}

// Insert appends one attempt log row. Rows are never updated afterwards.
func (r *LogRepository) Insert(l *db.AttemptLog) error {
	err := r.DB.QueryRow(`
		INSERT INTO booking_logs (rule_id, target_date, target_time, booked_time, playground, status, booking_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		ruleIDValue(l.RuleID), l.TargetDate, l.TargetTime, l.BookedTime, l.Playground,
		l.Status, l.BookingID, l.ErrorMessage,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting attempt log: %w", err)
	}
	return nil
}

func ruleIDValue(id *int) any {
	if id == nil {
		return nil
	}
	return *id
}

// FindBlocking is the duplicate guard query: it returns the most recent log
// for (ruleID, targetDate) whose status makes a new attempt unsafe, or nil.
// A booking_created row blocks too: the booking exists even if its payment
// outcome was never recorded.
func (r *LogRepository) FindBlocking(ruleID int, targetDate string) (*db.AttemptLog, error) {
	l, err := scanLog(r.DB.QueryRow(`
		SELECT `+logColumns+` FROM booking_logs
		WHERE rule_id = $1 AND target_date = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1`,
		ruleID, targetDate, entities.StatusSuccess, entities.StatusBookingCreated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying duplicate guard for rule %d on %s: %w", ruleID, targetDate, err)
	}
	return l, nil
}

// HasAttempt reports whether any attempt, whatever its outcome, was already
// recorded for (ruleID, targetDate). The scheduler uses this so a failed
// occurrence is not retried every tick for the rest of the day.
func (r *LogRepository) HasAttempt(ruleID int, targetDate string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM booking_logs WHERE rule_id = $1 AND target_date = $2)`,
		ruleID, targetDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking attempts for rule %d on %s: %w", ruleID, targetDate, err)
	}
	return exists, nil
}

func (r *LogRepository) List(limit int) ([]db.AttemptLog, error) {
	rows, err := r.DB.Query(`
		SELECT `+logColumns+` FROM booking_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// UpcomingSuccesses lists successful bookings from today onwards, earliest
// first. The dashboard's bookings panel is built from this.
func (r *LogRepository) UpcomingSuccesses(today string) ([]db.AttemptLog, error) {
	rows, err := r.DB.Query(`
		SELECT `+logColumns+` FROM booking_logs
		WHERE target_date >= $1 AND status = $2
		ORDER BY target_date, booked_time`,
		today, entities.StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming bookings: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// FindByBookingID returns the most recent log row carrying the given provider
// booking ID. Used when cancelling to recover date and playground.
func (r *LogRepository) FindByBookingID(bookingID string) (*db.AttemptLog, error) {
	l, err := scanLog(r.DB.QueryRow(`
		SELECT `+logColumns+` FROM booking_logs
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying log for booking %s: %w", bookingID, err)
	}
	return l, nil
}

func (r *LogRepository) Delete(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.DB.Exec(`DELETE FROM booking_logs WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("deleting logs: %w", err)
	}
	return nil
}

func collectLogs(rows *sql.Rows) ([]db.AttemptLog, error) {
	var logs []db.AttemptLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attempt log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}
