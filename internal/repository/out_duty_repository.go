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

// OutDutyRepository persists out-duty detachments.
type OutDutyRepository struct {
	db *sqlx.DB
}

// NewOutDutyRepository constructs an OutDutyRepository.
func NewOutDutyRepository(db *sqlx.DB) *OutDutyRepository {
	return &OutDutyRepository{db: db}
}

const outDutyColumns = `o.id, o.employee_id, o.duty_type, o.location, o.purpose, o.start_date, o.expected_return_date,
o.actual_return_date, o.status, o.remarks, o.created_by, o.created_at, o.updated_at`

// Create inserts an ongoing out-duty. A second ONGOING record for the same
// employee fails with a unique violation.
func (r *OutDutyRepository) Create(ctx context.Context, duty *models.OutDuty) error {
	if duty.ID == "" {
		duty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	duty.CreatedAt, duty.UpdatedAt = now, now
	const query = `INSERT INTO out_duties (id, employee_id, duty_type, location, purpose, start_date, expected_return_date, actual_return_date, status, remarks, created_by, created_at, updated_at)
VALUES (:id, :employee_id, :duty_type, :location, :purpose, :start_date, :expected_return_date, :actual_return_date, :status, :remarks, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, duty); err != nil {
		return fmt.Errorf("insert out duty: %w", err)
	}
	return nil
}

// FindByID returns an out-duty or sql.ErrNoRows.
func (r *OutDutyRepository) FindByID(ctx context.Context, id string) (*models.OutDuty, error) {
	query := `SELECT ` + outDutyColumns + ` FROM out_duties o WHERE o.id = $1`
	var duty models.OutDuty
	if err := r.db.GetContext(ctx, &duty, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get out duty: %w", err)
	}
	return &duty, nil
}

// FindOngoing returns the employee's ONGOING out-duty or sql.ErrNoRows.
func (r *OutDutyRepository) FindOngoing(ctx context.Context, employeeID string) (*models.OutDuty, error) {
	query := `SELECT ` + outDutyColumns + ` FROM out_duties o WHERE o.employee_id = $1 AND o.status = $2 LIMIT 1`
	var duty models.OutDuty
	if err := r.db.GetContext(ctx, &duty, query, employeeID, models.OutDutyOngoing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get ongoing out duty: %w", err)
	}
	return &duty, nil
}

// List returns a page of out-duties and the total match count.
func (r *OutDutyRepository) List(ctx context.Context, filter models.OutDutyFilter) ([]models.OutDuty, int, error) {
	where := &whereBuilder{}
	if filter.EmployeeID != "" {
		where.add("o.employee_id = $%d", filter.EmployeeID)
	}
	if filter.UnitID != "" {
		where.add("e.unit_id = $%d", filter.UnitID)
	}
	if filter.Status != "" {
		where.add("o.status = $%d", filter.Status)
	}
	from := ` FROM out_duties o JOIN employees e ON e.id = o.employee_id WHERE 1=1` + where.sql()

	var duties []models.OutDuty
	query := `SELECT ` + outDutyColumns + from + ` ORDER BY o.start_date DESC` + pageWindow(filter.Page, filter.PageSize)
	if err := r.db.SelectContext(ctx, &duties, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list out duties: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count out duties: %w", err)
	}
	return duties, total, nil
}

// Close moves an ONGOING record to status. It returns sql.ErrNoRows when the
// record is missing or no longer ongoing.
func (r *OutDutyRepository) Close(ctx context.Context, id string, status models.OutDutyStatus, actualReturn *models.Date, remarks string) (*models.OutDuty, error) {
	query := `UPDATE out_duties o SET status = $1, actual_return_date = $2,
remarks = CASE WHEN $3 = '' THEN o.remarks ELSE $3 END, updated_at = $4
WHERE o.id = $5 AND o.status = 'ONGOING'
RETURNING ` + outDutyColumns
	var duty models.OutDuty
	if err := r.db.GetContext(ctx, &duty, query, status, actualReturn, remarks, time.Now().UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("close out duty: %w", err)
	}
	return &duty, nil
}
