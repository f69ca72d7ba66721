// Package availability decides whether a court, a coach and requested
// equipment quantities are all free for a given interval.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtside/internal/models"
)

// Store provides the read queries the checker needs. Both the plain
// database handle and an open transaction satisfy it, so the same check
// runs advisory (unlocked) and inside the booking transaction.
type Store interface {
	GetCoach(ctx context.Context, id int64) (*models.Coach, error)
	GetEquipment(ctx context.Context, id int64) (*models.Equipment, error)
	ConfirmedCourtBookings(ctx context.Context, courtID int64, start, end time.Time) ([]models.Booking, error)
	ConfirmedCoachBookings(ctx context.Context, coachID int64, start, end time.Time) ([]models.Booking, error)
	ConfirmedBookingsOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error)
}

// Request describes the resources a candidate booking wants.
type Request struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
	CoachID   *int64
	Equipment []models.EquipmentLine
}

// Checker runs availability checks against a Store. It is a pure read:
// the result is a point-in-time judgement, and any race window is closed
// by the caller's transaction, not here.
type Checker struct {
	store Store
}

// NewChecker creates a checker over the given store.
func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// Check verifies court, coach and equipment availability for the request.
// Every failing resource is reported; Available is true only if all pass.
func (c *Checker) Check(ctx context.Context, req Request) (*models.AvailabilityResult, error) {
	result := &models.AvailabilityResult{
		Available: true,
		Conflicts: []models.Conflict{},
		Message:   "All resources are available",
	}

	courtConflict, err := c.checkCourt(ctx, req.CourtID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if courtConflict != nil {
		result.Conflicts = append(result.Conflicts, *courtConflict)
	}

	if req.CoachID != nil {
		coachConflict, err := c.checkCoach(ctx, *req.CoachID, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		if coachConflict != nil {
			result.Conflicts = append(result.Conflicts, *coachConflict)
		}
	}

	// Each equipment line is checked independently; a line does not hold
	// units for its siblings.
	for _, line := range req.Equipment {
		equipConflict, err := c.checkEquipment(ctx, line, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		if equipConflict != nil {
			result.Conflicts = append(result.Conflicts, *equipConflict)
		}
	}

	if len(result.Conflicts) > 0 {
		result.Available = false
		result.Message = "Some resources are not available"
	}
	return result, nil
}

func (c *Checker) checkCourt(ctx context.Context, courtID int64, start, end time.Time) (*models.Conflict, error) {
	overlapping, err := c.store.ConfirmedCourtBookings(ctx, courtID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check court %d: %w", courtID, err)
	}
	if len(overlapping) > 0 {
		return &models.Conflict{
			Resource:   "court",
			ResourceID: courtID,
			Message:    "Court is already booked for this time slot",
		}, nil
	}
	return nil, nil
}

func (c *Checker) checkCoach(ctx context.Context, coachID int64, start, end time.Time) (*models.Conflict, error) {
	coach, err := c.store.GetCoach(ctx, coachID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.Conflict{
				Resource:   "coach",
				ResourceID: coachID,
				Message:    "Coach is not available or inactive",
			}, nil
		}
		return nil, fmt.Errorf("check coach %d: %w", coachID, err)
	}
	if !coach.IsActive {
		return &models.Conflict{
			Resource:   "coach",
			ResourceID: coachID,
			Message:    "Coach is not available or inactive",
		}, nil
	}

	// The schedule check tests only the start instant against the day's
	// windows; a booking may run past a window's end. Changing that would
	// reject historically accepted bookings.
	if !withinSchedule(coach.Availability, start) {
		return &models.Conflict{
			Resource:   "coach",
			ResourceID: coachID,
			Message:    "Coach is not available at this time according to their schedule",
		}, nil
	}

	overlapping, err := c.store.ConfirmedCoachBookings(ctx, coachID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check coach %d bookings: %w", coachID, err)
	}
	if len(overlapping) > 0 {
		return &models.Conflict{
			Resource:   "coach",
			ResourceID: coachID,
			Message:    "Coach is already booked for this time slot",
		}, nil
	}
	return nil, nil
}

// withinSchedule reports whether t falls inside one of the coach's windows
// for t's weekday. A day with no windows means the coach does not work
// that day.
func withinSchedule(avail models.WeeklyAvailability, t time.Time) bool {
	windows := avail.WindowsFor(t)
	if len(windows) == 0 {
		return false
	}
	minute := models.MinuteOfDay(t)
	for _, w := range windows {
		startMin, err := models.ParseClock(w.Start)
		if err != nil {
			continue
		}
		endMin, err := models.ParseClock(w.End)
		if err != nil {
			continue
		}
		if minute >= startMin && minute < endMin {
			return true
		}
	}
	return false
}

func (c *Checker) checkEquipment(ctx context.Context, line models.EquipmentLine, start, end time.Time) (*models.Conflict, error) {
	equip, err := c.store.GetEquipment(ctx, line.EquipmentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.Conflict{
				Resource:   "equipment",
				ResourceID: line.EquipmentID,
				Message:    "Equipment not found or inactive",
			}, nil
		}
		return nil, fmt.Errorf("check equipment %d: %w", line.EquipmentID, err)
	}
	if !equip.IsActive {
		return &models.Conflict{
			Resource:   "equipment",
			ResourceID: line.EquipmentID,
			Message:    "Equipment not found or inactive",
		}, nil
	}

	overlapping, err := c.store.ConfirmedBookingsOverlapping(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("check equipment %d bookings: %w", line.EquipmentID, err)
	}

	booked := 0
	for i := range overlapping {
		booked += overlapping[i].EquipmentQuantity(line.EquipmentID)
	}

	available := equip.TotalQuantity - booked
	if available < line.Quantity {
		return &models.Conflict{
			Resource:          "equipment",
			ResourceID:        line.EquipmentID,
			Message:           fmt.Sprintf("Only %d units available, but %d requested", available, line.Quantity),
			AvailableQuantity: available,
			RequestedQuantity: line.Quantity,
		}, nil
	}
	return nil, nil
}
