package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sdlvbooker/internal/db"
)

type RuleRepository struct {
	DB *sql.DB
}

func NewRuleRepository(database *sql.DB) *RuleRepository {
	return &RuleRepository{DB: database}
}

const ruleColumns = `id, day_of_week, target_time, trigger_time, duration, activity, playground_order, enabled, created_at`

func scanRule(row interface{ Scan(...any) error }) (*db.Rule, error) {
	var r db.Rule
	var pgOrder sql.NullString
	err := row.Scan(&r.ID, &r.DayOfWeek, &r.TargetTime, &r.TriggerTime, &r.Duration,
		&r.Activity, &pgOrder, &r.Enabled, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if pgOrder.Valid && pgOrder.String != "" {
		if err := json.Unmarshal([]byte(pgOrder.String), &r.PlaygroundOrder); err != nil {
			return nil, fmt.Errorf("decoding playground_order for rule %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

func encodePlaygroundOrder(order []string) any {
	if len(order) == 0 {
		return nil
	}
	b, _ := json.Marshal(order)
	return string(b)
}

func (r *RuleRepository) GetAll() ([]db.Rule, error) {
	return r.list(`SELECT ` + ruleColumns + ` FROM booking_rules ORDER BY day_of_week, target_time`)
}

func (r *RuleRepository) GetEnabled() ([]db.Rule, error) {
	return r.list(`SELECT ` + ruleColumns + ` FROM booking_rules WHERE enabled ORDER BY day_of_week, target_time`)
}

func (r *RuleRepository) list(query string) ([]db.Rule, error) {
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []db.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *RuleRepository) GetByID(id int) (*db.Rule, error) {
	rule, err := scanRule(r.DB.QueryRow(
		`SELECT `+ruleColumns+` FROM booking_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("querying rule %d: %w", id, err)
	}
	return rule, nil
}

func (r *RuleRepository) Create(rule *db.Rule) (*db.Rule, error) {
	var id int
	err := r.DB.QueryRow(`
		INSERT INTO booking_rules (day_of_week, target_time, trigger_time, duration, activity, playground_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		rule.DayOfWeek, rule.TargetTime, rule.TriggerTime, rule.Duration, rule.Activity,
		encodePlaygroundOrder(rule.PlaygroundOrder),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("inserting rule: %w", err)
	}
	return r.GetByID(id)
}

// RuleUpdate holds the fields of a partial rule update. Nil fields are left
// untouched; PlaygroundOrder distinguishes "not sent" (nil pointer) from
// "clear the preference" (pointer to empty slice).
type RuleUpdate struct {
	DayOfWeek       *int
	TargetTime      *string
	TriggerTime     *string
	Duration        *int
	Enabled         *bool
	PlaygroundOrder *[]string
}

func (r *RuleRepository) Update(id int, upd RuleUpdate) (*db.Rule, error) {
	fields := ""
	args := []any{}
	add := func(column string, value any) {
		if fields != "" {
			fields += ", "
		}
		args = append(args, value)
		fields += fmt.Sprintf("%s = $%d", column, len(args))
	}

	if upd.DayOfWeek != nil {
		add("day_of_week", *upd.DayOfWeek)
	}
	if upd.TargetTime != nil {
		add("target_time", *upd.TargetTime)
	}
	if upd.TriggerTime != nil {
		add("trigger_time", *upd.TriggerTime)
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	if upd.Enabled != nil {
		add("enabled", *upd.Enabled)
	}
	if upd.PlaygroundOrder != nil {
		add("playground_order", encodePlaygroundOrder(*upd.PlaygroundOrder))
	}
	if fields == "" {
		return r.GetByID(id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE booking_rules SET %s WHERE id = $%d", fields, len(args))
	if _, err := r.DB.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("updating rule %d: %w", id, err)
	}
	return r.GetByID(id)
}

// Delete removes a rule. Its logs are kept for audit with rule_id nulled out.
func (r *RuleRepository) Delete(id int) error {
	if _, err := r.DB.Exec(`UPDATE booking_logs SET rule_id = NULL WHERE rule_id = $1`, id); err != nil {
		return fmt.Errorf("detaching logs of rule %d: %w", id, err)
	}
	if _, err := r.DB.Exec(`DELETE FROM booking_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting rule %d: %w", id, err)
	}
	return nil
}
