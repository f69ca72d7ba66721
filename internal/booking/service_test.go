package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/database"
	"courtside/internal/models"
	"courtside/internal/slots"
)

type recordingNotifier struct {
	calls []notifiedSlot
	err   error
}

type notifiedSlot struct {
	userID  int64
	courtID int64
	start   time.Time
	end     time.Time
}

func (n *recordingNotifier) SlotAvailable(ctx context.Context, userID, courtID int64, start, end time.Time) error {
	n.calls = append(n.calls, notifiedSlot{userID: userID, courtID: courtID, start: start, end: end})
	return n.err
}

type fixture struct {
	svc      *Service
	db       *database.DB
	notifier *recordingNotifier
	courtID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	court := &models.Court{Name: "Center Court", Type: models.CourtIndoor, BasePrice: 10, IsActive: true}
	require.NoError(t, db.CreateCourt(context.Background(), court))

	notifier := &recordingNotifier{}
	svc := NewService(db, notifier, nil, slots.DefaultHours(), zerolog.Nop())
	return &fixture{svc: svc, db: db, notifier: notifier, courtID: court.ID}
}

// Monday 2026-09-07, 10:00-11:00 UTC.
func slot(hour int) (time.Time, time.Time) {
	start := time.Date(2026, 9, 7, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, 10.0, b.TotalPrice)
	require.NotNil(t, b.Breakdown)
	assert.Equal(t, 10.0, b.Breakdown.BasePrice)
	assert.Equal(t, "Center Court", b.CourtName)
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	_, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, 2, Request{CourtID: f.courtID, StartTime: start.Add(30 * time.Minute), EndTime: end.Add(30 * time.Minute)})
	var conflictErr *models.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "court", conflictErr.Conflicts[0].Resource)
}

func TestCreateBookingBackToBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	_, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	// Touching intervals do not conflict.
	_, err = f.svc.CreateBooking(ctx, 2, Request{CourtID: f.courtID, StartTime: end, EndTime: end.Add(time.Hour)})
	require.NoError(t, err)
}

func TestCreateBookingInvalidInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, _ := slot(10)

	_, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: start})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.CreateBooking(ctx, 1, Request{StartTime: start, EndTime: start.Add(time.Hour)})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateBookingWithCoachAndEquipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	coach := &models.Coach{
		Name: "Alex", PricePerHour: 50, IsActive: true,
		Availability: models.WeeklyAvailability{"monday": {{Start: "09:00", End: "18:00"}}},
	}
	require.NoError(t, f.db.CreateCoach(ctx, coach))
	rackets := &models.Equipment{Name: "Racket", TotalQuantity: 4, PricePerUnit: 3, IsActive: true}
	require.NoError(t, f.db.CreateEquipment(ctx, rackets))

	start, end := slot(10)
	b, err := f.svc.CreateBooking(ctx, 1, Request{
		CourtID:   f.courtID,
		StartTime: start,
		EndTime:   end,
		CoachID:   &coach.ID,
		Equipment: []models.EquipmentLine{{EquipmentID: rackets.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	// 10 base + 50 coach + 2*3 equipment.
	assert.Equal(t, 66.0, b.TotalPrice)
	assert.Equal(t, 50.0, b.Breakdown.CoachFee)
	assert.Equal(t, 6.0, b.Breakdown.EquipmentFee)
	assert.Equal(t, "Alex", b.CoachName)

	// The four rackets are now down to two; asking for three must fail.
	_, err = f.svc.CreateBooking(ctx, 2, Request{
		CourtID:   f.courtID,
		StartTime: start,
		EndTime:   end,
		Equipment: []models.EquipmentLine{{EquipmentID: rackets.ID, Quantity: 3}},
	})
	var conflictErr *models.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestQuoteMatchesCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mult := 1.5
	require.NoError(t, f.db.CreateRule(ctx, &models.PricingRule{
		Name:       "Peak Hours",
		RuleType:   models.RulePeakHour,
		Multiplier: &mult,
		Conditions: models.RuleConditions{StartTime: "18:00", EndTime: "21:00"},
		Priority:   1,
		IsActive:   true,
	}))

	req := Request{CourtID: f.courtID, StartTime: time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC), EndTime: time.Date(2026, 9, 7, 19, 0, 0, 0, time.UTC)}
	quote, err := f.svc.QuotePrice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 15.0, quote.TotalPrice)

	b, err := f.svc.CreateBooking(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, quote.TotalPrice, b.TotalPrice)
	require.Len(t, b.Breakdown.AppliedRules, 1)
	assert.Equal(t, "Peak Hours", b.Breakdown.AppliedRules[0].Name)
}

func TestCheckAvailabilityIsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	result, err := f.svc.CheckAvailability(ctx, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	assert.True(t, result.Available)

	_, err = f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	result, err = f.svc.CheckAvailability(ctx, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "Some resources are not available", result.Message)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	cancelled, notified, err := f.svc.CancelBooking(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.False(t, notified)

	// Cancellation is terminal.
	_, _, err = f.svc.CancelBooking(ctx, b.ID, 1, false)
	assert.ErrorIs(t, err, models.ErrAlreadyCancelled)

	// The slot is free again.
	_, err = f.svc.CreateBooking(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
}

func TestCancelBookingForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, _, err = f.svc.CancelBooking(ctx, b.ID, 2, false)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// Admins cancel anyone's booking.
	_, _, err = f.svc.CancelBooking(ctx, b.ID, 2, true)
	require.NoError(t, err)
}

func TestCancelBookingNotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CancelBooking(context.Background(), 999, 1, true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWaitlistPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	entryA, err := f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 3, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, notified, err := f.svc.CancelBooking(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.True(t, notified)

	// Oldest entry wins.
	require.Len(t, f.notifier.calls, 1)
	call := f.notifier.calls[0]
	assert.Equal(t, int64(2), call.userID)
	assert.Equal(t, f.courtID, call.courtID)
	assert.True(t, call.start.Equal(start))
	assert.True(t, call.end.Equal(end))

	entries, err := f.db.ListWaitlistEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.WaitlistNotified, entries[0].Status)
	assert.Equal(t, entryA.ID, entries[0].ID)
}

func TestWaitlistSkipsExpiredEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	entryA, err := f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 3, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	require.NoError(t, f.db.ExpireWaitlistEntry(ctx, entryA.ID))

	_, notified, err := f.svc.CancelBooking(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.True(t, notified)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, int64(3), f.notifier.calls[0].userID)
}

func TestWaitlistEntryMatchesExactSlotOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	// Waiting for a different slot; cancelling 10:00 must not notify.
	otherStart, otherEnd := slot(14)
	_, err = f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: otherStart, EndTime: otherEnd})
	require.NoError(t, err)

	_, notified, err := f.svc.CancelBooking(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.False(t, notified)
	assert.Empty(t, f.notifier.calls)
}

func TestJoinWaitlistDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	_, err := f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, err = f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, models.ErrAlreadyWaiting)

	// Same user, different slot is fine.
	otherStart, otherEnd := slot(14)
	_, err = f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: otherStart, EndTime: otherEnd})
	require.NoError(t, err)
}

func TestNotifierFailureDoesNotFailCancel(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue unreachable")
	ctx := context.Background()
	start, end := slot(10)

	b, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 2, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	_, notified, err := f.svc.CancelBooking(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.True(t, notified)
}

func TestListAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := slot(10)

	_, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	daySlots, err := f.svc.ListAvailableSlots(ctx, f.courtID, day)
	require.NoError(t, err)
	require.Len(t, daySlots, 12)
	assert.False(t, daySlots[1].Available) // 10:00
	assert.True(t, daySlots[0].Available)
	assert.True(t, daySlots[2].Available)

	_, err = f.svc.ListAvailableSlots(ctx, 999, day)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListUserBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s1, e1 := slot(10)
	s2, e2 := slot(14)
	b1, err := f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: s1, EndTime: e1})
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, 1, Request{CourtID: f.courtID, StartTime: s2, EndTime: e2})
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, 2, Request{CourtID: f.courtID, StartTime: slotAt(16), EndTime: slotAt(17)})
	require.NoError(t, err)

	all, err := f.svc.ListUserBookings(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, _, err = f.svc.CancelBooking(ctx, b1.ID, 1, false)
	require.NoError(t, err)

	confirmed, err := f.svc.ListUserBookings(ctx, 1, models.BookingConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.True(t, confirmed[0].StartTime.Equal(s2))
}

func slotAt(hour int) time.Time {
	return time.Date(2026, 9, 7, hour, 0, 0, 0, time.UTC)
}
