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

// ReplacementRepository persists month-scoped slot overrides.
type ReplacementRepository struct {
	db *sqlx.DB
}

// NewReplacementRepository constructs a ReplacementRepository.
func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

const replacementColumns = `id, date, month, year, slot, original_employee_id, replacement_employee_id, reason, created_by, created_at, updated_at`

// FindByKey returns the replacement for key or sql.ErrNoRows.
func (r *ReplacementRepository) FindByKey(ctx context.Context, key models.ReplacementKey) (*models.GateDutyReplacement, error) {
	query := `SELECT ` + replacementColumns + ` FROM gate_duty_replacements WHERE date = $1 AND month = $2 AND year = $3 AND slot = $4`
	var rep models.GateDutyReplacement
	if err := r.db.GetContext(ctx, &rep, query, key.Date, key.Month, key.Year, key.Slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get replacement: %w", err)
	}
	return &rep, nil
}

// Upsert creates or overwrites the replacement at rep's natural key.
func (r *ReplacementRepository) Upsert(ctx context.Context, rep *models.GateDutyReplacement) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rep.CreatedAt, rep.UpdatedAt = now, now
	const query = `INSERT INTO gate_duty_replacements (` + replacementColumns + `)
VALUES (:id, :date, :month, :year, :slot, :original_employee_id, :replacement_employee_id, :reason, :created_by, :created_at, :updated_at)
ON CONFLICT (date, month, year, slot) DO UPDATE SET
original_employee_id = EXCLUDED.original_employee_id,
replacement_employee_id = EXCLUDED.replacement_employee_id,
reason = EXCLUDED.reason,
created_by = EXCLUDED.created_by,
updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, rep)
	if err != nil {
		return fmt.Errorf("upsert replacement: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return fmt.Errorf("scan replacement: %w", err)
		}
	}
	return rows.Err()
}

// Delete removes the replacement at key, returning sql.ErrNoRows when absent.
func (r *ReplacementRepository) Delete(ctx context.Context, key models.ReplacementKey) error {
	const query = `DELETE FROM gate_duty_replacements WHERE date = $1 AND month = $2 AND year = $3 AND slot = $4`
	res, err := r.db.ExecContext(ctx, query, key.Date, key.Month, key.Year, key.Slot)
	if err != nil {
		return fmt.Errorf("delete replacement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete replacement rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByMonth returns every replacement of a month.
func (r *ReplacementRepository) ListByMonth(ctx context.Context, year, month int) ([]models.GateDutyReplacement, error) {
	query := `SELECT ` + replacementColumns + ` FROM gate_duty_replacements WHERE year = $1 AND month = $2 ORDER BY date ASC, slot ASC`
	var reps []models.GateDutyReplacement
	if err := r.db.SelectContext(ctx, &reps, query, year, month); err != nil {
		return nil, fmt.Errorf("list replacements: %w", err)
	}
	return reps, nil
}

// ListForDay returns the replacements in force on one calendar day.
func (r *ReplacementRepository) ListForDay(ctx context.Context, date, month, year int) ([]models.GateDutyReplacement, error) {
	query := `SELECT ` + replacementColumns + ` FROM gate_duty_replacements WHERE date = $1 AND month = $2 AND year = $3`
	var reps []models.GateDutyReplacement
	if err := r.db.SelectContext(ctx, &reps, query, date, month, year); err != nil {
		return nil, fmt.Errorf("list day replacements: %w", err)
	}
	return reps, nil
}
