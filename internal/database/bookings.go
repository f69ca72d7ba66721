package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"courtside/internal/models"
)

const bookingColumns = `
	b.id, b.user_id, b.court_id, b.coach_id, b.start_time, b.end_time,
	b.status, b.equipment, b.pricing_breakdown, b.total_price, b.notes,
	b.created_at, b.updated_at`

// ConfirmedCourtBookings returns confirmed bookings for the court whose
// interval overlaps [start, end).
func (db *DB) ConfirmedCourtBookings(ctx context.Context, courtID int64, start, end time.Time) ([]models.Booking, error) {
	return confirmedCourtBookings(ctx, db.DB, courtID, start, end)
}

// ConfirmedCourtBookings is the transactional variant.
func (t *Tx) ConfirmedCourtBookings(ctx context.Context, courtID int64, start, end time.Time) ([]models.Booking, error) {
	return confirmedCourtBookings(ctx, t.tx, courtID, start, end)
}

func confirmedCourtBookings(ctx context.Context, q querier, courtID int64, start, end time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.court_id = ? AND b.status = 'confirmed'
		  AND b.start_time < ? AND b.end_time > ?
		ORDER BY b.start_time`,
		courtID, end, start)
	if err != nil {
		return nil, fmt.Errorf("query court bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ConfirmedCoachBookings returns confirmed bookings for the coach whose
// interval overlaps [start, end).
func (db *DB) ConfirmedCoachBookings(ctx context.Context, coachID int64, start, end time.Time) ([]models.Booking, error) {
	return confirmedCoachBookings(ctx, db.DB, coachID, start, end)
}

// ConfirmedCoachBookings is the transactional variant.
func (t *Tx) ConfirmedCoachBookings(ctx context.Context, coachID int64, start, end time.Time) ([]models.Booking, error) {
	return confirmedCoachBookings(ctx, t.tx, coachID, start, end)
}

func confirmedCoachBookings(ctx context.Context, q querier, coachID int64, start, end time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.coach_id = ? AND b.status = 'confirmed'
		  AND b.start_time < ? AND b.end_time > ?
		ORDER BY b.start_time`,
		coachID, end, start)
	if err != nil {
		return nil, fmt.Errorf("query coach bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ConfirmedBookingsOverlapping returns every confirmed booking, on any
// court, whose interval overlaps [start, end). Equipment is allocated
// facility-wide, so the capacity sum spans all courts.
func (db *DB) ConfirmedBookingsOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return confirmedBookingsOverlapping(ctx, db.DB, start, end)
}

// ConfirmedBookingsOverlapping is the transactional variant.
func (t *Tx) ConfirmedBookingsOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return confirmedBookingsOverlapping(ctx, t.tx, start, end)
}

func confirmedBookingsOverlapping(ctx context.Context, q querier, start, end time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		WHERE b.status = 'confirmed'
		  AND b.start_time < ? AND b.end_time > ?
		ORDER BY b.start_time`,
		end, start)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// CreateBooking inserts a booking within the transaction and fills in its id.
func (t *Tx) CreateBooking(ctx context.Context, b *models.Booking) error {
	equip, err := marshalJSON(b.Equipment)
	if err != nil {
		return fmt.Errorf("encode equipment: %w", err)
	}
	breakdown, err := json.Marshal(b.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	var coachID sql.NullInt64
	if b.CoachID != nil {
		coachID = sql.NullInt64{Int64: *b.CoachID, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO bookings (user_id, court_id, coach_id, start_time, end_time, status, equipment, pricing_breakdown, total_price, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.CourtID, coachID, b.StartTime, b.EndTime, b.Status, equip, string(breakdown), b.TotalPrice, b.Notes)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// GetBooking returns a booking by id with court and coach names joined.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db.DB, id)
}

// GetBooking is the transactional variant.
func (t *Tx) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, t.tx, id)
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`, c.name, co.name
		FROM bookings b
		JOIN courts c ON c.id = b.court_id
		LEFT JOIN coaches co ON co.id = b.coach_id
		WHERE b.id = ?`, id)

	b, err := scanBookingRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus flips a booking's status within the transaction.
func (t *Tx) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return requireRow(res, id)
}

// BookingFilter narrows booking list queries.
type BookingFilter struct {
	UserID  int64
	CourtID int64
	Status  models.BookingStatus
	Date    time.Time // match bookings starting on this calendar day
	Limit   int
}

// ListBookings returns bookings matching the filter, newest start first,
// with court and coach names joined.
func (db *DB) ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, c.name, co.name
		FROM bookings b
		JOIN courts c ON c.id = b.court_id
		LEFT JOIN coaches co ON co.id = b.coach_id
		WHERE 1=1`
	var args []any

	if filter.UserID != 0 {
		query += ` AND b.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.CourtID != 0 {
		query += ` AND b.court_id = ?`
		args = append(args, filter.CourtID)
	}
	if filter.Status != "" {
		query += ` AND b.status = ?`
		args = append(args, filter.Status)
	}
	if !filter.Date.IsZero() {
		dayStart := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		query += ` AND b.start_time >= ? AND b.start_time < ?`
		args = append(args, dayStart, dayStart.AddDate(0, 0, 1))
	}
	query += ` ORDER BY b.start_time DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanJoinedBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingFields(s rowScanner, joined bool) (*models.Booking, error) {
	var b models.Booking
	var coachID sql.NullInt64
	var equip, notes sql.NullString
	var breakdown string
	dest := []any{
		&b.ID, &b.UserID, &b.CourtID, &coachID, &b.StartTime, &b.EndTime,
		&b.Status, &equip, &breakdown, &b.TotalPrice, &notes,
		&b.CreatedAt, &b.UpdatedAt,
	}
	var courtName string
	var coachName sql.NullString
	if joined {
		dest = append(dest, &courtName, &coachName)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if coachID.Valid {
		b.CoachID = &coachID.Int64
	}
	b.Notes = notes.String
	if equip.Valid && equip.String != "" {
		if err := json.Unmarshal([]byte(equip.String), &b.Equipment); err != nil {
			return nil, fmt.Errorf("decode booking %d equipment: %w", b.ID, err)
		}
	}
	if breakdown != "" {
		if err := json.Unmarshal([]byte(breakdown), &b.Breakdown); err != nil {
			return nil, fmt.Errorf("decode booking %d breakdown: %w", b.ID, err)
		}
	}
	if joined {
		b.CourtName = courtName
		b.CoachName = coachName.String
	}
	return &b, nil
}

func scanBookingRow(row *sql.Row) (*models.Booking, error) {
	return scanBookingFields(row, true)
}

func scanJoinedBooking(rows *sql.Rows) (*models.Booking, error) {
	return scanBookingFields(rows, true)
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBookingFields(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
