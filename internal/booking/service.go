// Package booking orchestrates the booking lifecycle: availability check,
// price computation, atomic creation, cancellation, and waitlist handling.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/availability"
	"courtside/internal/database"
	"courtside/internal/events"
	"courtside/internal/metrics"
	"courtside/internal/models"
	"courtside/internal/pricing"
	"courtside/internal/slots"
)

// Notifier delivers slot-available messages. Delivery failures are logged
// by the service, never surfaced to the cancelling caller.
type Notifier interface {
	SlotAvailable(ctx context.Context, userID, courtID int64, start, end time.Time) error
}

// Request carries the booking parameters shared by availability checks,
// price quotes, bookings and waitlist entries.
type Request struct {
	CourtID   int64                  `json:"court_id"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	CoachID   *int64                 `json:"coach_id,omitempty"`
	Equipment []models.EquipmentLine `json:"equipment,omitempty"`
	Notes     string                 `json:"notes,omitempty"`
}

// Service is the booking lifecycle manager.
type Service struct {
	db       *database.DB
	notifier Notifier
	bus      *events.Bus
	grid     *slots.Generator
	logger   zerolog.Logger
}

// NewService creates the booking service. The bus may be nil when no
// in-process subscribers exist.
func NewService(db *database.DB, notifier Notifier, bus *events.Bus, hours slots.Hours, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		bus:      bus,
		grid:     slots.NewGenerator(db, hours),
		logger:   logger.With().Str("component", "booking").Logger(),
	}
}

// normalize converts the request's instants to UTC. All stored timestamps
// are UTC so SQLite's string comparisons and the waitlist's exact-slot
// equality behave deterministically.
func (r Request) normalize() Request {
	r.StartTime = r.StartTime.UTC()
	r.EndTime = r.EndTime.UTC()
	return r
}

func validateInterval(req Request) error {
	if req.CourtID == 0 {
		return fmt.Errorf("court id is required: %w", models.ErrInvalidInput)
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return fmt.Errorf("start and end time are required: %w", models.ErrInvalidInput)
	}
	if !req.StartTime.Before(req.EndTime) {
		return fmt.Errorf("end time must be after start time: %w", models.ErrInvalidInput)
	}
	return nil
}

// CheckAvailability runs an advisory availability check outside any
// transaction. Its result is a snapshot and may be stale by the time a
// booking is attempted.
func (s *Service) CheckAvailability(ctx context.Context, req Request) (*models.AvailabilityResult, error) {
	if err := validateInterval(req); err != nil {
		return nil, err
	}
	req = req.normalize()
	result, err := availability.NewChecker(s.db).Check(ctx, availability.Request{
		CourtID:   req.CourtID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CoachID:   req.CoachID,
		Equipment: req.Equipment,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncAvailabilityCheck(result.Available)
	return result, nil
}

// QuotePrice computes a standalone price quote. It runs the same engine
// the booking path uses, so a quote never drifts from the charge.
func (s *Service) QuotePrice(ctx context.Context, req Request) (*models.PriceBreakdown, error) {
	if err := validateInterval(req); err != nil {
		return nil, err
	}
	req = req.normalize()
	breakdown, err := pricing.NewEngine(s.db).Calculate(ctx, pricing.Request{
		CourtID:   req.CourtID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CoachID:   req.CoachID,
		Equipment: req.Equipment,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPriceQuote()
	return breakdown, nil
}

// CreateBooking checks availability, prices the booking and persists it as
// one atomic unit. The transaction starts in immediate mode, so two
// concurrent requests for overlapping intervals serialize: the second
// re-reads state after the first commits and sees its bookings.
func (s *Service) CreateBooking(ctx context.Context, userID int64, req Request) (*models.Booking, error) {
	if err := validateInterval(req); err != nil {
		return nil, err
	}
	req = req.normalize()

	var bookingID int64
	err := s.db.ExecTx(ctx, func(tx *database.Tx) error {
		result, err := availability.NewChecker(tx).Check(ctx, availability.Request{
			CourtID:   req.CourtID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			CoachID:   req.CoachID,
			Equipment: req.Equipment,
		})
		if err != nil {
			return err
		}
		if !result.Available {
			for _, c := range result.Conflicts {
				metrics.IncBookingConflict(c.Resource)
			}
			return &models.ConflictError{Conflicts: result.Conflicts}
		}

		breakdown, err := pricing.NewEngine(tx).Calculate(ctx, pricing.Request{
			CourtID:   req.CourtID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			CoachID:   req.CoachID,
			Equipment: req.Equipment,
		})
		if err != nil {
			return err
		}

		b := &models.Booking{
			UserID:     userID,
			CourtID:    req.CourtID,
			CoachID:    req.CoachID,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Status:     models.BookingConfirmed,
			Equipment:  req.Equipment,
			Breakdown:  breakdown,
			TotalPrice: breakdown.TotalPrice,
			Notes:      req.Notes,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		bookingID = b.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking, err := s.db.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load created booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", userID).
		Int64("court_id", booking.CourtID).
		Float64("total_price", booking.TotalPrice).
		Msg("booking created")

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingCreated, booking)
	}
	return booking, nil
}

// CancelBooking flips a booking to cancelled and, in the same transaction,
// promotes the oldest waiting waitlist entry for the exact freed slot.
// Only the owner or an admin may cancel; cancellation is terminal.
// Returns the updated booking and whether a waitlist entry was notified.
func (s *Service) CancelBooking(ctx context.Context, bookingID, requesterID int64, requesterIsAdmin bool) (*models.Booking, bool, error) {
	var promoted *models.WaitlistEntry

	err := s.db.ExecTx(ctx, func(tx *database.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !requesterIsAdmin && b.UserID != requesterID {
			return fmt.Errorf("booking %d belongs to another user: %w", bookingID, models.ErrForbidden)
		}
		if b.Status == models.BookingCancelled {
			return models.ErrAlreadyCancelled
		}

		if err := tx.UpdateBookingStatus(ctx, bookingID, models.BookingCancelled); err != nil {
			return err
		}

		entry, err := tx.OldestWaitingEntry(ctx, b.CourtID, b.StartTime, b.EndTime)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := tx.MarkWaitlistNotified(ctx, entry.ID, time.Now().UTC()); err != nil {
			return err
		}
		promoted = entry
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	booking, err := s.db.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, false, fmt.Errorf("load cancelled booking: %w", err)
	}

	metrics.IncBookingCancelled()
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("requester_id", requesterID).
		Bool("waitlist_notified", promoted != nil).
		Msg("booking cancelled")

	if promoted != nil {
		metrics.IncWaitlistNotified()
		if s.bus != nil {
			_ = s.bus.PublishJSON(events.TypeSlotFreed, events.SlotFreedPayload{
				UserID:    promoted.UserID,
				CourtID:   promoted.CourtID,
				StartTime: promoted.StartTime,
				EndTime:   promoted.EndTime,
				EntryID:   promoted.ID,
			})
		}
		if s.notifier != nil {
			if err := s.notifier.SlotAvailable(ctx, promoted.UserID, promoted.CourtID, promoted.StartTime, promoted.EndTime); err != nil {
				s.logger.Warn().Err(err).
					Int64("user_id", promoted.UserID).
					Msg("slot-available notification failed")
			}
		}
	}
	return booking, promoted != nil, nil
}

// JoinWaitlist records a deferred request for an occupied slot. Joining
// never requires proving the slot is currently taken.
func (s *Service) JoinWaitlist(ctx context.Context, userID int64, req Request) (*models.WaitlistEntry, error) {
	if err := validateInterval(req); err != nil {
		return nil, err
	}
	req = req.normalize()

	exists, err := s.db.HasWaitingEntry(ctx, userID, req.CourtID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrAlreadyWaiting
	}

	entry := &models.WaitlistEntry{
		UserID:    userID,
		CourtID:   req.CourtID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    models.WaitlistWaiting,
		Requested: models.RequestedResources{
			CoachID:   req.CoachID,
			Equipment: req.Equipment,
		},
	}
	if err := s.db.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, err
	}

	metrics.IncWaitlistJoined()
	s.logger.Info().
		Int64("entry_id", entry.ID).
		Int64("user_id", userID).
		Int64("court_id", req.CourtID).
		Msg("joined waitlist")
	return entry, nil
}

// ListAvailableSlots returns the hourly slot grid for a court on a date.
func (s *Service) ListAvailableSlots(ctx context.Context, courtID int64, date time.Time) ([]slots.Slot, error) {
	if courtID == 0 {
		return nil, fmt.Errorf("court id is required: %w", models.ErrInvalidInput)
	}
	if _, err := s.db.GetCourt(ctx, courtID); err != nil {
		return nil, err
	}
	return s.grid.DaySlots(ctx, courtID, date)
}

// ListUserBookings returns a user's bookings, optionally filtered by status.
func (s *Service) ListUserBookings(ctx context.Context, userID int64, status models.BookingStatus) ([]models.Booking, error) {
	return s.db.ListBookings(ctx, database.BookingFilter{UserID: userID, Status: status})
}

// ListBookings returns bookings matching the filter; admin use.
func (s *Service) ListBookings(ctx context.Context, filter database.BookingFilter) ([]models.Booking, error) {
	return s.db.ListBookings(ctx, filter)
}
