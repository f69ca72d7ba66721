// Package models defines the core entities of the facility booking system.
package models

import (
	"fmt"
	"strings"
	"time"
)

// CourtType distinguishes indoor and outdoor courts.
type CourtType string

const (
	CourtIndoor  CourtType = "indoor"
	CourtOutdoor CourtType = "outdoor"
)

// Court is a reservable playing court.
type Court struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        CourtType `json:"type"`
	BasePrice   float64   `json:"base_price"` // per hour
	IsActive    bool      `json:"is_active"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Window is a time-of-day interval, inclusive start, exclusive end.
// Times are "HH:MM" strings, e.g. {"09:00", "17:00"}.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyAvailability maps lowercase weekday names ("monday" ... "sunday")
// to the windows a coach works that day. A missing day means unavailable.
type WeeklyAvailability map[string][]Window

// WindowsFor returns the windows for the weekday of t.
func (w WeeklyAvailability) WindowsFor(t time.Time) []Window {
	if w == nil {
		return nil
	}
	return w[strings.ToLower(t.Weekday().String())]
}

// Coach is a bookable instructor with a weekly working schedule.
type Coach struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Specialization string             `json:"specialization,omitempty"`
	PricePerHour   float64            `json:"price_per_hour"`
	IsActive       bool               `json:"is_active"`
	Availability   WeeklyAvailability `json:"availability,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Equipment is a rentable item with a finite number of units.
type Equipment struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TotalQuantity int       `json:"total_quantity"`
	PricePerUnit  float64   `json:"price_per_unit"` // per unit per hour
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EquipmentLine is one requested equipment item with a quantity.
type EquipmentLine struct {
	EquipmentID int64 `json:"equipment_id"`
	Quantity    int   `json:"quantity"`
}

// RuleType identifies a pricing rule variant.
type RuleType string

const (
	RulePeakHour      RuleType = "peak_hour"
	RuleWeekend       RuleType = "weekend"
	RuleIndoorPremium RuleType = "indoor_premium"
	RuleHoliday       RuleType = "holiday"
	RuleCustom        RuleType = "custom"
)

// RuleConditions holds the structured predicate data of a pricing rule.
// Which fields are meaningful depends on the rule type.
type RuleConditions struct {
	StartTime string   `json:"startTime,omitempty"` // "HH:MM"
	EndTime   string   `json:"endTime,omitempty"`   // "HH:MM"
	Days      []int    `json:"days,omitempty"`      // 0=Sunday ... 6=Saturday
	Holidays  []string `json:"holidays,omitempty"`  // "YYYY-MM-DD" (UTC)
	CourtType string   `json:"courtType,omitempty"`
}

// PricingRule adjusts the price of a booking when its conditions match.
// Exactly one of Multiplier or FixedAmount is set.
type PricingRule struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	RuleType    RuleType       `json:"rule_type"`
	Multiplier  *float64       `json:"multiplier,omitempty"`
	FixedAmount *float64       `json:"fixed_amount,omitempty"`
	Conditions  RuleConditions `json:"conditions"`
	Priority    int            `json:"priority"` // higher applies earlier
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AppliedRule records one rule's contribution to a price breakdown.
type AppliedRule struct {
	Name   string   `json:"name"`
	Type   RuleType `json:"type"`
	Amount float64  `json:"amount"` // rounded to 2 decimals
}

// PriceBreakdown itemizes the components that sum to TotalPrice.
// It is snapshotted onto the booking at creation and never recomputed.
type PriceBreakdown struct {
	BasePrice    float64       `json:"base_price"`
	AppliedRules []AppliedRule `json:"applied_rules"`
	EquipmentFee float64       `json:"equipment_fee"`
	CoachFee     float64       `json:"coach_fee"`
	TotalPrice   float64       `json:"total_price"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is a confirmed reservation of a court, optionally with a coach
// and equipment, over the half-open interval [StartTime, EndTime).
type Booking struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	CourtID   int64           `json:"court_id"`
	CoachID   *int64          `json:"coach_id,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Status    BookingStatus   `json:"status"`
	Equipment []EquipmentLine `json:"equipment,omitempty"`
	Breakdown *PriceBreakdown `json:"pricing_breakdown,omitempty"`
	TotalPrice float64        `json:"total_price"`
	Notes      string         `json:"notes,omitempty"`
	CourtName  string         `json:"court_name,omitempty"`
	CoachName  string         `json:"coach_name,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// OverlapsInterval reports whether the booking overlaps [start, end).
func (b *Booking) OverlapsInterval(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// EquipmentQuantity returns the booked quantity of the given equipment id.
func (b *Booking) EquipmentQuantity(equipmentID int64) int {
	for _, line := range b.Equipment {
		if line.EquipmentID == equipmentID {
			return line.Quantity
		}
	}
	return 0
}

// Overlaps reports whether the half-open intervals [a1, a2) and [b1, b2)
// share at least one instant. Touching edges do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// WaitlistStatus is the lifecycle state of a waitlist entry.
type WaitlistStatus string

const (
	WaitlistWaiting  WaitlistStatus = "waiting"
	WaitlistNotified WaitlistStatus = "notified"
	WaitlistExpired  WaitlistStatus = "expired"
)

// RequestedResources captures the coach and equipment a waitlisted user
// asked for, verbatim from their original request.
type RequestedResources struct {
	CoachID   *int64          `json:"coach_id,omitempty"`
	Equipment []EquipmentLine `json:"equipment,omitempty"`
}

// WaitlistEntry records a deferred booking request for an occupied slot.
type WaitlistEntry struct {
	ID         int64              `json:"id"`
	UserID     int64              `json:"user_id"`
	CourtID    int64              `json:"court_id"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	Status     WaitlistStatus     `json:"status"`
	Requested  RequestedResources `json:"requested_resources"`
	NotifiedAt *time.Time         `json:"notified_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Conflict describes one resource that failed an availability check.
type Conflict struct {
	Resource          string `json:"resource"` // "court", "coach", "equipment"
	ResourceID        int64  `json:"resource_id"`
	Message           string `json:"message"`
	AvailableQuantity int    `json:"available_quantity,omitempty"`
	RequestedQuantity int    `json:"requested_quantity,omitempty"`
}

// AvailabilityResult aggregates the outcome of an availability check.
type AvailabilityResult struct {
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
	Message   string     `json:"message"`
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// MinuteOfDay returns t's time of day in minutes since midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
