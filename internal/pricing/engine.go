// Package pricing computes deterministic, rule-based price breakdowns for
// candidate bookings.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"courtside/internal/models"
)

// Store provides the catalog reads the engine needs. Both the database
// handle and an open transaction satisfy it, so a quote and the charge at
// booking time run through identical logic.
type Store interface {
	GetCourt(ctx context.Context, id int64) (*models.Court, error)
	GetCoach(ctx context.Context, id int64) (*models.Coach, error)
	GetEquipment(ctx context.Context, id int64) (*models.Equipment, error)
	ActiveRules(ctx context.Context) ([]models.PricingRule, error)
}

// Request describes the booking parameters a price is computed for.
type Request struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
	CoachID   *int64
	Equipment []models.EquipmentLine
}

// Engine is a pure function over the current catalog and rule state.
type Engine struct {
	store Store
}

// NewEngine creates a pricing engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Calculate builds the price breakdown for the request. Active rules apply
// in priority-descending order (id ascending on ties); the running price
// stays unrounded between rules so rounding error never compounds, while
// displayed amounts round to 2 decimals. Coach and equipment fees round
// before they join the total, matching the snapshots stored on bookings.
func (e *Engine) Calculate(ctx context.Context, req Request) (*models.PriceBreakdown, error) {
	court, err := e.store.GetCourt(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}

	durationHours := req.EndTime.Sub(req.StartTime).Hours()
	basePrice := court.BasePrice * durationHours

	breakdown := &models.PriceBreakdown{
		BasePrice:    round2(basePrice),
		AppliedRules: []models.AppliedRule{},
	}

	rules, err := e.store.ActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pricing rules: %w", err)
	}

	currentPrice := basePrice
	for _, rule := range rules {
		if !ruleApplies(rule, req.StartTime, court) {
			continue
		}
		var amount float64
		switch {
		case rule.Multiplier != nil:
			amount = currentPrice * (*rule.Multiplier - 1)
			currentPrice *= *rule.Multiplier
		case rule.FixedAmount != nil:
			amount = *rule.FixedAmount
			currentPrice += amount
		default:
			continue
		}
		breakdown.AppliedRules = append(breakdown.AppliedRules, models.AppliedRule{
			Name:   rule.Name,
			Type:   rule.RuleType,
			Amount: round2(amount),
		})
	}

	total := currentPrice

	if req.CoachID != nil {
		coach, err := e.store.GetCoach(ctx, *req.CoachID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if coach != nil {
			breakdown.CoachFee = round2(coach.PricePerHour * durationHours)
			total += breakdown.CoachFee
		}
	}

	if len(req.Equipment) > 0 {
		var equipmentFee float64
		for _, line := range req.Equipment {
			equip, err := e.store.GetEquipment(ctx, line.EquipmentID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return nil, err
			}
			equipmentFee += equip.PricePerUnit * float64(line.Quantity) * durationHours
		}
		breakdown.EquipmentFee = round2(equipmentFee)
		total += breakdown.EquipmentFee
	}

	breakdown.TotalPrice = round2(total)
	return breakdown, nil
}

// ruleApplies dispatches on the rule type. Each variant evaluates against
// the booking start and the court; unknown types never apply.
func ruleApplies(rule models.PricingRule, start time.Time, court *models.Court) bool {
	switch rule.RuleType {
	case models.RulePeakHour:
		return inTimeOfDayWindow(start, rule.Conditions)
	case models.RuleWeekend:
		return isWeekend(start)
	case models.RuleIndoorPremium:
		return court.Type == models.CourtIndoor
	case models.RuleHoliday:
		return isHoliday(start, rule.Conditions)
	case models.RuleCustom:
		return customApplies(start, court, rule.Conditions)
	default:
		return false
	}
}

// inTimeOfDayWindow reports whether start's time of day falls in the
// half-open [conditions.startTime, conditions.endTime) window.
func inTimeOfDayWindow(start time.Time, cond models.RuleConditions) bool {
	if cond.StartTime == "" || cond.EndTime == "" {
		return false
	}
	windowStart, err := models.ParseClock(cond.StartTime)
	if err != nil {
		return false
	}
	windowEnd, err := models.ParseClock(cond.EndTime)
	if err != nil {
		return false
	}
	minute := models.MinuteOfDay(start)
	return minute >= windowStart && minute < windowEnd
}

func isWeekend(start time.Time) bool {
	day := start.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// isHoliday compares start's UTC calendar date against the configured list.
func isHoliday(start time.Time, cond models.RuleConditions) bool {
	if len(cond.Holidays) == 0 {
		return false
	}
	date := start.UTC().Format("2006-01-02")
	for _, h := range cond.Holidays {
		if h == date {
			return true
		}
	}
	return false
}

// customApplies ANDs whichever conditions are present: court type, weekday
// membership, and a peak-hour style time window.
func customApplies(start time.Time, court *models.Court, cond models.RuleConditions) bool {
	if cond.CourtType != "" && string(court.Type) != cond.CourtType {
		return false
	}
	if len(cond.Days) > 0 {
		day := int(start.Weekday()) // 0 = Sunday
		found := false
		for _, d := range cond.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if cond.StartTime != "" && cond.EndTime != "" {
		if !inTimeOfDayWindow(start, cond) {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
