package pricing

import (
	"context"
	"testing"
	"time"

	"courtside/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCourt(ctx context.Context, id int64) (*models.Court, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Court), args.Error(1)
}
func (m *mockStore) GetCoach(ctx context.Context, id int64) (*models.Coach, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coach), args.Error(1)
}
func (m *mockStore) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Equipment), args.Error(1)
}
func (m *mockStore) ActiveRules(ctx context.Context) ([]models.PricingRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.PricingRule), args.Error(1)
}

func f(v float64) *float64 { return &v }

// Saturday 18:00-19:00 UTC.
var (
	satStart = time.Date(2026, 9, 5, 18, 0, 0, 0, time.UTC)
	satEnd   = time.Date(2026, 9, 5, 19, 0, 0, 0, time.UTC)
)

func TestCalculateWeekendThenPeakHour(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Name: "Court 1", Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	// Priority descending: weekend (2) before peak_hour (1).
	store.On("ActiveRules", ctx).Return([]models.PricingRule{
		{ID: 2, Name: "Weekend Surcharge", RuleType: models.RuleWeekend, FixedAmount: f(5), Priority: 2, IsActive: true},
		{ID: 1, Name: "Peak Hours", RuleType: models.RulePeakHour, Multiplier: f(1.5), Priority: 1, IsActive: true,
			Conditions: models.RuleConditions{StartTime: "18:00", EndTime: "21:00"}},
	}, nil)

	breakdown, err := engine.Calculate(ctx, Request{CourtID: 1, StartTime: satStart, EndTime: satEnd})
	require.NoError(t, err)

	assert.Equal(t, 10.0, breakdown.BasePrice)
	require.Len(t, breakdown.AppliedRules, 2)
	assert.Equal(t, "Weekend Surcharge", breakdown.AppliedRules[0].Name)
	assert.Equal(t, 5.0, breakdown.AppliedRules[0].Amount)
	assert.Equal(t, "Peak Hours", breakdown.AppliedRules[1].Name)
	assert.Equal(t, 7.5, breakdown.AppliedRules[1].Amount)
	assert.Equal(t, 22.5, breakdown.TotalPrice)
}

func TestCalculateCourtNotFound(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	store.On("GetCourt", ctx, int64(99)).Return(nil, models.ErrNotFound)

	_, err := engine.Calculate(ctx, Request{CourtID: 99, StartTime: satStart, EndTime: satEnd})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCalculateFractionalDuration(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	store.On("ActiveRules", ctx).Return([]models.PricingRule{}, nil)

	// 90 minutes at $10/hr.
	breakdown, err := engine.Calculate(ctx, Request{
		CourtID: 1, StartTime: satStart, EndTime: satStart.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, breakdown.BasePrice)
	assert.Equal(t, 15.0, breakdown.TotalPrice)
}

func TestCalculateCoachAndEquipmentFees(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	coachID := int64(7)
	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	store.On("ActiveRules", ctx).Return([]models.PricingRule{}, nil)
	store.On("GetCoach", ctx, coachID).Return(&models.Coach{
		ID: coachID, PricePerHour: 25, IsActive: true,
	}, nil)
	store.On("GetEquipment", ctx, int64(3)).Return(&models.Equipment{
		ID: 3, TotalQuantity: 10, PricePerUnit: 2, IsActive: true,
	}, nil)

	breakdown, err := engine.Calculate(ctx, Request{
		CourtID:   1,
		StartTime: satStart,
		EndTime:   satStart.Add(2 * time.Hour),
		CoachID:   &coachID,
		Equipment: []models.EquipmentLine{{EquipmentID: 3, Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, breakdown.BasePrice)
	assert.Equal(t, 50.0, breakdown.CoachFee)     // 25 * 2h
	assert.Equal(t, 16.0, breakdown.EquipmentFee) // 2 * 4 * 2h
	assert.Equal(t, 86.0, breakdown.TotalPrice)
}

func TestCalculateUnknownCoachAndEquipmentSkipped(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	coachID := int64(404)
	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	store.On("ActiveRules", ctx).Return([]models.PricingRule{}, nil)
	store.On("GetCoach", ctx, coachID).Return(nil, models.ErrNotFound)
	store.On("GetEquipment", ctx, int64(404)).Return(nil, models.ErrNotFound)

	breakdown, err := engine.Calculate(ctx, Request{
		CourtID:   1,
		StartTime: satStart,
		EndTime:   satEnd,
		CoachID:   &coachID,
		Equipment: []models.EquipmentLine{{EquipmentID: 404, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, breakdown.CoachFee)
	assert.Equal(t, 0.0, breakdown.EquipmentFee)
	assert.Equal(t, 10.0, breakdown.TotalPrice)
}

func TestCalculateHolidayRule(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	store.On("ActiveRules", ctx).Return([]models.PricingRule{
		{ID: 1, Name: "Holiday", RuleType: models.RuleHoliday, Multiplier: f(2), Priority: 0, IsActive: true,
			Conditions: models.RuleConditions{Holidays: []string{"2026-12-25"}}},
	}, nil)

	xmas := time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC)
	breakdown, err := engine.Calculate(ctx, Request{
		CourtID: 1, StartTime: xmas, EndTime: xmas.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, breakdown.AppliedRules, 1)
	assert.Equal(t, 20.0, breakdown.TotalPrice)

	// A day later the rule must not fire.
	store2 := new(mockStore)
	store2.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtOutdoor, BasePrice: 10, IsActive: true,
	}, nil)
	store2.On("ActiveRules", ctx).Return([]models.PricingRule{
		{ID: 1, Name: "Holiday", RuleType: models.RuleHoliday, Multiplier: f(2), Priority: 0, IsActive: true,
			Conditions: models.RuleConditions{Holidays: []string{"2026-12-25"}}},
	}, nil)
	breakdown, err = NewEngine(store2).Calculate(ctx, Request{
		CourtID: 1, StartTime: xmas.AddDate(0, 0, 1), EndTime: xmas.AddDate(0, 0, 1).Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, breakdown.AppliedRules)
	assert.Equal(t, 10.0, breakdown.TotalPrice)
}

func TestCalculateIndoorPremium(t *testing.T) {
	store := new(mockStore)
	engine := NewEngine(store)
	ctx := context.Background()

	store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
		ID: 1, Type: models.CourtIndoor, BasePrice: 10, IsActive: true,
	}, nil)
	store.On("ActiveRules", ctx).Return([]models.PricingRule{
		{ID: 1, Name: "Indoor Premium", RuleType: models.RuleIndoorPremium, FixedAmount: f(3), Priority: 0, IsActive: true},
	}, nil)

	breakdown, err := engine.Calculate(ctx, Request{CourtID: 1, StartTime: satStart, EndTime: satEnd})
	require.NoError(t, err)
	require.Len(t, breakdown.AppliedRules, 1)
	assert.Equal(t, 13.0, breakdown.TotalPrice)
}

func TestCustomRuleConditionsAreANDed(t *testing.T) {
	rule := models.PricingRule{
		ID: 1, Name: "Friday Evening Outdoor", RuleType: models.RuleCustom,
		FixedAmount: f(4), Priority: 0, IsActive: true,
		Conditions: models.RuleConditions{
			CourtType: "outdoor",
			Days:      []int{5}, // Friday
			StartTime: "17:00",
			EndTime:   "21:00",
		},
	}
	outdoor := &models.Court{ID: 1, Type: models.CourtOutdoor}
	indoor := &models.Court{ID: 2, Type: models.CourtIndoor}

	friday := time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC)
	assert.True(t, ruleApplies(rule, friday, outdoor))
	assert.False(t, ruleApplies(rule, friday, indoor), "court type mismatch")
	assert.False(t, ruleApplies(rule, friday.Add(-4*time.Hour), outdoor), "outside window")

	saturday := time.Date(2026, 9, 5, 18, 0, 0, 0, time.UTC)
	assert.False(t, ruleApplies(rule, saturday, outdoor), "wrong weekday")
}

func TestPeakHourWindowIsHalfOpen(t *testing.T) {
	rule := models.PricingRule{
		ID: 1, RuleType: models.RulePeakHour, Multiplier: f(1.5), IsActive: true,
		Conditions: models.RuleConditions{StartTime: "18:00", EndTime: "21:00"},
	}
	court := &models.Court{Type: models.CourtOutdoor}

	at := func(h, m int) time.Time { return time.Date(2026, 9, 5, h, m, 0, 0, time.UTC) }
	assert.True(t, ruleApplies(rule, at(18, 0), court))
	assert.True(t, ruleApplies(rule, at(20, 59), court))
	assert.False(t, ruleApplies(rule, at(21, 0), court), "end is exclusive")
	assert.False(t, ruleApplies(rule, at(17, 59), court))
}

func TestCalculateIsDeterministic(t *testing.T) {
	build := func() *mockStore {
		store := new(mockStore)
		ctx := context.Background()
		store.On("GetCourt", ctx, int64(1)).Return(&models.Court{
			ID: 1, Type: models.CourtIndoor, BasePrice: 12.34, IsActive: true,
		}, nil)
		store.On("ActiveRules", ctx).Return([]models.PricingRule{
			{ID: 1, Name: "A", RuleType: models.RuleIndoorPremium, Multiplier: f(1.17), Priority: 5, IsActive: true},
			{ID: 2, Name: "B", RuleType: models.RuleWeekend, FixedAmount: f(2.5), Priority: 5, IsActive: true},
		}, nil)
		return store
	}

	ctx := context.Background()
	req := Request{CourtID: 1, StartTime: satStart, EndTime: satStart.Add(95 * time.Minute)}

	first, err := NewEngine(build()).Calculate(ctx, req)
	require.NoError(t, err)
	second, err := NewEngine(build()).Calculate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
