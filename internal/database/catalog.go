package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"courtside/internal/models"
)

// GetCourt returns a court by id.
func (db *DB) GetCourt(ctx context.Context, id int64) (*models.Court, error) {
	return getCourt(ctx, db.DB, id)
}

// GetCourt returns a court by id within the transaction.
func (t *Tx) GetCourt(ctx context.Context, id int64) (*models.Court, error) {
	return getCourt(ctx, t.tx, id)
}

func getCourt(ctx context.Context, q querier, id int64) (*models.Court, error) {
	var c models.Court
	var desc sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, name, type, base_price, is_active, description, created_at, updated_at
		FROM courts WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Type, &c.BasePrice, &c.IsActive, &desc, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("court %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get court: %w", err)
	}
	c.Description = desc.String
	return &c, nil
}

// ListCourts returns courts, active ones only unless includeInactive is set.
func (db *DB) ListCourts(ctx context.Context, includeInactive bool) ([]models.Court, error) {
	query := `
		SELECT id, name, type, base_price, is_active, description, created_at, updated_at
		FROM courts`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	var courts []models.Court
	for rows.Next() {
		var c models.Court
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.BasePrice, &c.IsActive, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		c.Description = desc.String
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

// CreateCourt inserts a court and fills in its id.
func (db *DB) CreateCourt(ctx context.Context, c *models.Court) error {
	if c.Type != models.CourtIndoor && c.Type != models.CourtOutdoor {
		return fmt.Errorf("court type %q: %w", c.Type, models.ErrInvalidInput)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO courts (name, type, base_price, is_active, description)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Type, c.BasePrice, c.IsActive, c.Description)
	if err != nil {
		return fmt.Errorf("create court: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCourt updates the mutable fields of a court.
func (db *DB) UpdateCourt(ctx context.Context, c *models.Court) error {
	res, err := db.ExecContext(ctx, `
		UPDATE courts SET name = ?, base_price = ?, is_active = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.BasePrice, c.IsActive, c.Description, time.Now().UTC(), c.ID)
	if err != nil {
		return fmt.Errorf("update court: %w", err)
	}
	return requireRow(res, c.ID)
}

// GetCoach returns a coach by id.
func (db *DB) GetCoach(ctx context.Context, id int64) (*models.Coach, error) {
	return getCoach(ctx, db.DB, id)
}

// GetCoach returns a coach by id within the transaction.
func (t *Tx) GetCoach(ctx context.Context, id int64) (*models.Coach, error) {
	return getCoach(ctx, t.tx, id)
}

func getCoach(ctx context.Context, q querier, id int64) (*models.Coach, error) {
	var c models.Coach
	var spec, avail sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, name, specialization, price_per_hour, is_active, availability, created_at, updated_at
		FROM coaches WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &spec, &c.PricePerHour, &c.IsActive, &avail, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coach %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get coach: %w", err)
	}
	c.Specialization = spec.String
	if avail.Valid && avail.String != "" {
		if err := json.Unmarshal([]byte(avail.String), &c.Availability); err != nil {
			return nil, fmt.Errorf("decode coach %d availability: %w", id, err)
		}
	}
	return &c, nil
}

// ListCoaches returns coaches, active ones only unless includeInactive is set.
func (db *DB) ListCoaches(ctx context.Context, includeInactive bool) ([]models.Coach, error) {
	query := `
		SELECT id, name, specialization, price_per_hour, is_active, availability, created_at, updated_at
		FROM coaches`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coaches: %w", err)
	}
	defer rows.Close()

	var coaches []models.Coach
	for rows.Next() {
		var c models.Coach
		var spec, avail sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &spec, &c.PricePerHour, &c.IsActive, &avail, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan coach: %w", err)
		}
		c.Specialization = spec.String
		if avail.Valid && avail.String != "" {
			if err := json.Unmarshal([]byte(avail.String), &c.Availability); err != nil {
				return nil, fmt.Errorf("decode coach %d availability: %w", c.ID, err)
			}
		}
		coaches = append(coaches, c)
	}
	return coaches, rows.Err()
}

// CreateCoach inserts a coach and fills in its id.
func (db *DB) CreateCoach(ctx context.Context, c *models.Coach) error {
	avail, err := marshalJSON(c.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO coaches (name, specialization, price_per_hour, is_active, availability)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Specialization, c.PricePerHour, c.IsActive, avail)
	if err != nil {
		return fmt.Errorf("create coach: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCoach updates the mutable fields of a coach.
func (db *DB) UpdateCoach(ctx context.Context, c *models.Coach) error {
	avail, err := marshalJSON(c.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE coaches SET name = ?, specialization = ?, price_per_hour = ?, is_active = ?, availability = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Specialization, c.PricePerHour, c.IsActive, avail, time.Now().UTC(), c.ID)
	if err != nil {
		return fmt.Errorf("update coach: %w", err)
	}
	return requireRow(res, c.ID)
}

// GetEquipment returns an equipment record by id.
func (db *DB) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	return getEquipment(ctx, db.DB, id)
}

// GetEquipment returns an equipment record by id within the transaction.
func (t *Tx) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	return getEquipment(ctx, t.tx, id)
}

func getEquipment(ctx context.Context, q querier, id int64) (*models.Equipment, error) {
	var e models.Equipment
	err := q.QueryRowContext(ctx, `
		SELECT id, name, total_quantity, price_per_unit, is_active, created_at, updated_at
		FROM equipment WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.TotalQuantity, &e.PricePerUnit, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("equipment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return &e, nil
}

// ListEquipment returns equipment, active only unless includeInactive is set.
func (db *DB) ListEquipment(ctx context.Context, includeInactive bool) ([]models.Equipment, error) {
	query := `
		SELECT id, name, total_quantity, price_per_unit, is_active, created_at, updated_at
		FROM equipment`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var items []models.Equipment
	for rows.Next() {
		var e models.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalQuantity, &e.PricePerUnit, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CreateEquipment inserts an equipment record and fills in its id.
func (db *DB) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	if e.TotalQuantity < 0 {
		return fmt.Errorf("total quantity %d: %w", e.TotalQuantity, models.ErrInvalidInput)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO equipment (name, total_quantity, price_per_unit, is_active)
		VALUES (?, ?, ?, ?)`,
		e.Name, e.TotalQuantity, e.PricePerUnit, e.IsActive)
	if err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// UpdateEquipment updates the mutable fields of an equipment record.
func (db *DB) UpdateEquipment(ctx context.Context, e *models.Equipment) error {
	if e.TotalQuantity < 0 {
		return fmt.Errorf("total quantity %d: %w", e.TotalQuantity, models.ErrInvalidInput)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE equipment SET name = ?, total_quantity = ?, price_per_unit = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, e.TotalQuantity, e.PricePerUnit, e.IsActive, time.Now().UTC(), e.ID)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	return requireRow(res, e.ID)
}

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("id %d: %w", id, models.ErrNotFound)
	}
	return nil
}
