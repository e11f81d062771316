package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

// EmployeeRepository reads the employee directory.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs an EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeSelect = `SELECT e.id, e.service_number, e.name, e.rank, e.gender, e.unit_id, u.name AS unit_name, e.active, e.created_at, e.updated_at
FROM employees e LEFT JOIN units u ON u.id = e.unit_id`

// FindByID returns an employee, active or not. History references inactive employees too.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, employeeSelect+` WHERE e.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &emp, nil
}

// FindByIDs returns the employees in ids that exist.
func (r *EmployeeRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, employeeSelect+` WHERE e.id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find employees by ids: %w", err)
	}
	return employees, nil
}

// List returns a page of employees and the total match count.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	where := &whereBuilder{}
	if !filter.IncludeInactive {
		where.addRaw("e.active = TRUE")
	}
	if filter.UnitID != "" {
		where.add("e.unit_id = $%d", filter.UnitID)
	}
	if filter.Search != "" {
		where.add("(LOWER(e.name) LIKE $%[1]d OR LOWER(e.service_number) LIKE $%[1]d)", "%"+strings.ToLower(filter.Search)+"%")
	}

	listQuery := employeeSelect + ` WHERE 1=1` + where.sql() + ` ORDER BY e.name ASC` + pageWindow(filter.Page, filter.PageSize)
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, listQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM employees e WHERE 1=1` + where.sql()
	if err := r.db.GetContext(ctx, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}
