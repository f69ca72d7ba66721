package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"courtside/internal/models"
)

// CreateWaitlistEntry inserts a waiting entry and fills in its id.
func (db *DB) CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	req, err := marshalJSON(e.Requested)
	if err != nil {
		return fmt.Errorf("encode requested resources: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO waitlist (user_id, court_id, start_time, end_time, status, requested_resources)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CourtID, e.StartTime, e.EndTime, e.Status, req)
	if err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// HasWaitingEntry reports whether the user already has a waiting entry for
// the exact slot.
func (db *DB) HasWaitingEntry(ctx context.Context, userID, courtID int64, start, end time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM waitlist
		WHERE user_id = ? AND court_id = ? AND start_time = ? AND end_time = ? AND status = 'waiting'`,
		userID, courtID, start, end,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check waitlist: %w", err)
	}
	return count > 0, nil
}

// OldestWaitingEntry returns the earliest-created waiting entry for the
// exact (court, start, end) slot, or ErrNotFound if none waits.
func (t *Tx) OldestWaitingEntry(ctx context.Context, courtID int64, start, end time.Time) (*models.WaitlistEntry, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, court_id, start_time, end_time, status, requested_resources, notified_at, created_at
		FROM waitlist
		WHERE court_id = ? AND start_time = ? AND end_time = ? AND status = 'waiting'
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		courtID, start, end)

	e, err := scanWaitlistEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("waitlist entry: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("oldest waiting entry: %w", err)
	}
	return e, nil
}

// MarkWaitlistNotified transitions an entry to notified within the
// transaction, stamping the notification time.
func (t *Tx) MarkWaitlistNotified(ctx context.Context, id int64, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE waitlist SET status = 'notified', notified_at = ? WHERE id = ? AND status = 'waiting'`,
		at, id)
	if err != nil {
		return fmt.Errorf("mark waitlist notified: %w", err)
	}
	return requireRow(res, id)
}

// ExpireWaitlistEntry marks an entry expired; used by external sweeps.
func (db *DB) ExpireWaitlistEntry(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE waitlist SET status = 'expired' WHERE id = ? AND status = 'waiting'`, id)
	if err != nil {
		return fmt.Errorf("expire waitlist entry: %w", err)
	}
	return requireRow(res, id)
}

// ListWaitlistEntries returns a user's waitlist entries, newest first.
func (db *DB) ListWaitlistEntries(ctx context.Context, userID int64) ([]models.WaitlistEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, court_id, start_time, end_time, status, requested_resources, notified_at, created_at
		FROM waitlist
		WHERE user_id = ?
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanWaitlistEntry(s rowScanner) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	var req sql.NullString
	var notified sql.NullTime
	if err := s.Scan(&e.ID, &e.UserID, &e.CourtID, &e.StartTime, &e.EndTime, &e.Status, &req, &notified, &e.CreatedAt); err != nil {
		return nil, err
	}
	if req.Valid && req.String != "" {
		if err := json.Unmarshal([]byte(req.String), &e.Requested); err != nil {
			return nil, fmt.Errorf("decode waitlist %d resources: %w", e.ID, err)
		}
	}
	if notified.Valid {
		e.NotifiedAt = &notified.Time
	}
	return &e, nil
}
