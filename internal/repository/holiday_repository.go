package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

// HolidayRepository persists the holiday calendar.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

const holidayColumns = `id, date, name, type, active, created_at, updated_at`

// IsHoliday reports an active holiday of type t on date.
func (r *HolidayRepository) IsHoliday(ctx context.Context, date models.Date, t models.HolidayType) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM holidays WHERE date = $1 AND type = $2 AND active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, date, t); err != nil {
		return false, fmt.Errorf("check holiday: %w", err)
	}
	return exists, nil
}

// ListInRange returns active holidays of type t within [from, to].
func (r *HolidayRepository) ListInRange(ctx context.Context, from, to models.Date, t models.HolidayType) ([]models.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE date BETWEEN $1 AND $2 AND type = $3 AND active = TRUE ORDER BY date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, from, to, t); err != nil {
		return nil, fmt.Errorf("list holidays in range: %w", err)
	}
	return holidays, nil
}

// List returns active holidays matching filter.
func (r *HolidayRepository) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	where := &whereBuilder{}
	if filter.Year > 0 {
		where.add("EXTRACT(YEAR FROM date) = $%d", filter.Year)
	}
	if filter.Type != "" {
		where.add("type = $%d", filter.Type)
	}
	if filter.From != nil {
		where.add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("date <= $%d", *filter.To)
	}
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE active = TRUE` + where.sql() + ` ORDER BY date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, where.args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// Upsert stores a holiday, reactivating a deactivated one on the same date and type.
func (r *HolidayRepository) Upsert(ctx context.Context, h *models.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO holidays (id, date, name, type, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, $5, $5)
ON CONFLICT (date, type) DO UPDATE SET name = EXCLUDED.name, active = TRUE, updated_at = EXCLUDED.updated_at
RETURNING ` + holidayColumns
	if err := r.db.GetContext(ctx, h, query, h.ID, h.Date, h.Name, h.Type, now); err != nil {
		return fmt.Errorf("upsert holiday: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a holiday.
func (r *HolidayRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE holidays SET active = FALSE, updated_at = $2 WHERE id = $1 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate holiday: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate holiday rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
