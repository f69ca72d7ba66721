package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"courtside/internal/models"
)

// ActiveRules returns all active pricing rules ordered by priority
// descending. Ties break on id ascending so evaluation order is stable.
func (db *DB) ActiveRules(ctx context.Context) ([]models.PricingRule, error) {
	return activeRules(ctx, db.DB)
}

// ActiveRules returns active pricing rules within the transaction.
func (t *Tx) ActiveRules(ctx context.Context) ([]models.PricingRule, error) {
	return activeRules(ctx, t.tx)
}

func activeRules(ctx context.Context, q querier) ([]models.PricingRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, rule_type, multiplier, fixed_amount, conditions, priority, is_active, created_at, updated_at
		FROM pricing_rules
		WHERE is_active = 1
		ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns all pricing rules, including inactive ones.
func (db *DB) ListRules(ctx context.Context) ([]models.PricingRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, rule_type, multiplier, fixed_amount, conditions, priority, is_active, created_at, updated_at
		FROM pricing_rules
		ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]models.PricingRule, error) {
	var rules []models.PricingRule
	for rows.Next() {
		var r models.PricingRule
		var mult, fixed sql.NullFloat64
		var cond sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.RuleType, &mult, &fixed, &cond, &r.Priority, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if mult.Valid {
			v := mult.Float64
			r.Multiplier = &v
		}
		if fixed.Valid {
			v := fixed.Float64
			r.FixedAmount = &v
		}
		if cond.Valid && cond.String != "" {
			if err := json.Unmarshal([]byte(cond.String), &r.Conditions); err != nil {
				return nil, fmt.Errorf("decode rule %d conditions: %w", r.ID, err)
			}
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// CreateRule inserts a pricing rule and fills in its id. Exactly one of
// Multiplier or FixedAmount must be set.
func (db *DB) CreateRule(ctx context.Context, r *models.PricingRule) error {
	if err := validateRule(r); err != nil {
		return err
	}
	cond, err := marshalJSON(r.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO pricing_rules (name, rule_type, multiplier, fixed_amount, conditions, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.RuleType, nullFloat(r.Multiplier), nullFloat(r.FixedAmount), cond, r.Priority, r.IsActive)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// UpdateRule updates the mutable fields of a pricing rule.
func (db *DB) UpdateRule(ctx context.Context, r *models.PricingRule) error {
	if err := validateRule(r); err != nil {
		return err
	}
	cond, err := marshalJSON(r.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE pricing_rules SET name = ?, rule_type = ?, multiplier = ?, fixed_amount = ?, conditions = ?, priority = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.RuleType, nullFloat(r.Multiplier), nullFloat(r.FixedAmount), cond, r.Priority, r.IsActive, time.Now().UTC(), r.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireRow(res, r.ID)
}

// DeactivateRule flips a rule inactive without deleting it.
func (db *DB) DeactivateRule(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE pricing_rules SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	return requireRow(res, id)
}

func validateRule(r *models.PricingRule) error {
	switch r.RuleType {
	case models.RulePeakHour, models.RuleWeekend, models.RuleIndoorPremium, models.RuleHoliday, models.RuleCustom:
	default:
		return fmt.Errorf("rule type %q: %w", r.RuleType, models.ErrInvalidInput)
	}
	if (r.Multiplier == nil) == (r.FixedAmount == nil) {
		return fmt.Errorf("rule must set exactly one of multiplier or fixed amount: %w", models.ErrInvalidInput)
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
