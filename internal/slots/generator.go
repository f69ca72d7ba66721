// Package slots builds the human-facing availability grid of fixed-length
// candidate slots. Bookings themselves may start and end on arbitrary
// minute boundaries; the grid is display-only.
package slots

import (
	"context"
	"fmt"
	"time"

	"courtside/internal/models"
)

// Slot represents one grid cell for a court on a date.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
	Available bool
}

// SlotInfo is a simplified representation for UI.
type SlotInfo struct {
	Start     string `json:"start"` // "09:00"
	End       string `json:"end"`   // "10:00"
	Available bool   `json:"available"`
}

// Hours describes the facility's bookable day.
type Hours struct {
	Open         string // "09:00"
	Close        string // "21:00"
	SlotDuration int    // minutes
}

// DefaultHours returns the standard facility day: hourly slots from
// 09:00 to 21:00.
func DefaultHours() Hours {
	return Hours{Open: "09:00", Close: "21:00", SlotDuration: 60}
}

// BookingSource supplies the confirmed bookings a slot may collide with.
type BookingSource interface {
	ConfirmedCourtBookings(ctx context.Context, courtID int64, start, end time.Time) ([]models.Booking, error)
}

// Generator generates the slot grid for a date.
type Generator struct {
	source BookingSource
	hours  Hours
}

// NewGenerator creates a slot generator.
func NewGenerator(source BookingSource, hours Hours) *Generator {
	if hours.Open == "" {
		hours.Open = "09:00"
	}
	if hours.Close == "" {
		hours.Close = "21:00"
	}
	if hours.SlotDuration <= 0 {
		hours.SlotDuration = 60
	}
	return &Generator{source: source, hours: hours}
}

// DaySlots returns the grid for a court on the given date. A slot is
// unavailable iff it overlaps any confirmed booking for the court that day.
func (g *Generator) DaySlots(ctx context.Context, courtID int64, date time.Time) ([]Slot, error) {
	open, err := parseTimeOnDate(date, g.hours.Open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	close, err := parseTimeOnDate(date, g.hours.Close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}

	bookings, err := g.source.ConfirmedCourtBookings(ctx, courtID, open, close)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	slotDuration := time.Duration(g.hours.SlotDuration) * time.Minute
	var result []Slot
	for cursor := open; !cursor.Add(slotDuration).After(close); cursor = cursor.Add(slotDuration) {
		slotStart := cursor
		slotEnd := cursor.Add(slotDuration)

		booked := false
		for i := range bookings {
			if bookings[i].OverlapsInterval(slotStart, slotEnd) {
				booked = true
				break
			}
		}

		result = append(result, Slot{
			StartTime: slotStart,
			EndTime:   slotEnd,
			Available: !booked,
		})
	}
	return result, nil
}

// ToSlotInfo converts slots to SlotInfo for UI.
func ToSlotInfo(slots []Slot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Start:     s.StartTime.Format("15:04"),
			End:       s.EndTime.Format("15:04"),
			Available: s.Available,
		}
	}
	return result
}

// parseTimeOnDate combines a date with an "HH:MM" clock string in the
// date's location.
func parseTimeOnDate(date time.Time, clock string) (time.Time, error) {
	minutes, err := models.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location()), nil
}
