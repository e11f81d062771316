package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

// GateDutyDayUpsert carries the slot values to write for one recurring date.
// A slot missing from Slots keeps its stored value; a nil value clears it.
type GateDutyDayUpsert struct {
	Date  int
	Slots map[models.GateSlot]*string
}

// GateDutyRepository persists the permanent gate-duty roster.
type GateDutyRepository struct {
	db *sqlx.DB
}

// NewGateDutyRepository constructs a GateDutyRepository.
func NewGateDutyRepository(db *sqlx.DB) *GateDutyRepository {
	return &GateDutyRepository{db: db}
}

const gateDutyColumns = `id, date, year, main_gate_morning, main_gate_evening, school_gate_morning, school_gate_evening, updated_by, created_at, updated_at`

var slotColumns = map[models.GateSlot]string{
	models.SlotMainGateMorning:   "main_gate_morning",
	models.SlotMainGateEvening:   "main_gate_evening",
	models.SlotSchoolGateMorning: "school_gate_morning",
	models.SlotSchoolGateEvening: "school_gate_evening",
}

// ListByYear returns every recurring date configured for year.
func (r *GateDutyRepository) ListByYear(ctx context.Context, year int) ([]models.GateDuty, error) {
	query := `SELECT ` + gateDutyColumns + ` FROM gate_duties WHERE year = $1 ORDER BY date ASC`
	var duties []models.GateDuty
	if err := r.db.SelectContext(ctx, &duties, query, year); err != nil {
		return nil, fmt.Errorf("list gate duties: %w", err)
	}
	return duties, nil
}

// FindByID returns a gate-duty row or sql.ErrNoRows.
func (r *GateDutyRepository) FindByID(ctx context.Context, id string) (*models.GateDuty, error) {
	query := `SELECT ` + gateDutyColumns + ` FROM gate_duties WHERE id = $1`
	var duty models.GateDuty
	if err := r.db.GetContext(ctx, &duty, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get gate duty: %w", err)
	}
	return &duty, nil
}

// FindByDateYear returns the row for {date, year} or sql.ErrNoRows.
func (r *GateDutyRepository) FindByDateYear(ctx context.Context, date, year int) (*models.GateDuty, error) {
	query := `SELECT ` + gateDutyColumns + ` FROM gate_duties WHERE date = $1 AND year = $2`
	var duty models.GateDuty
	if err := r.db.GetContext(ctx, &duty, query, date, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get gate duty by date: %w", err)
	}
	return &duty, nil
}

const upsertGateDutyQuery = `INSERT INTO gate_duties (id, date, year, main_gate_morning, main_gate_evening, school_gate_morning, school_gate_evening, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $5, $7, $9, $11, $12, $13, $13)
ON CONFLICT (date, year) DO UPDATE SET
main_gate_morning = CASE WHEN $4::boolean THEN EXCLUDED.main_gate_morning ELSE gate_duties.main_gate_morning END,
main_gate_evening = CASE WHEN $6::boolean THEN EXCLUDED.main_gate_evening ELSE gate_duties.main_gate_evening END,
school_gate_morning = CASE WHEN $8::boolean THEN EXCLUDED.school_gate_morning ELSE gate_duties.school_gate_morning END,
school_gate_evening = CASE WHEN $10::boolean THEN EXCLUDED.school_gate_evening ELSE gate_duties.school_gate_evening END,
updated_by = EXCLUDED.updated_by,
updated_at = EXCLUDED.updated_at
RETURNING ` + gateDutyColumns

// UpsertDays writes every day of a setup batch atomically.
func (r *GateDutyRepository) UpsertDays(ctx context.Context, year int, days []GateDutyDayUpsert, updatedBy string) (result []models.GateDuty, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin gate duty setup: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	result = make([]models.GateDuty, 0, len(days))
	for _, day := range days {
		args := []interface{}{uuid.NewString(), day.Date, year}
		for _, slot := range models.GateSlots {
			value, set := day.Slots[slot]
			args = append(args, set, value)
		}
		args = append(args, updatedBy, now)

		var duty models.GateDuty
		if err = tx.GetContext(ctx, &duty, upsertGateDutyQuery, args...); err != nil {
			return nil, fmt.Errorf("upsert gate duty %d/%d: %w", day.Date, year, err)
		}
		result = append(result, duty)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit gate duty setup: %w", err)
	}
	return result, nil
}

// UpdateSlot rebinds one slot of an existing row. It returns sql.ErrNoRows
// when id does not exist.
func (r *GateDutyRepository) UpdateSlot(ctx context.Context, id string, slot models.GateSlot, employeeID *string, updatedBy string) (*models.GateDuty, error) {
	column, ok := slotColumns[slot]
	if !ok {
		return nil, fmt.Errorf("update gate duty slot: unknown slot %q", slot)
	}
	query := `UPDATE gate_duties SET ` + column + ` = $1, updated_by = $2, updated_at = $3 WHERE id = $4 RETURNING ` + gateDutyColumns
	var duty models.GateDuty
	if err := r.db.GetContext(ctx, &duty, query, employeeID, updatedBy, time.Now().UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update gate duty slot: %w", err)
	}
	return &duty, nil
}
