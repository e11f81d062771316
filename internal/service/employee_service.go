package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type employeeFinder interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
}

type employeeRepository interface {
	employeeFinder
	FindByIDs(ctx context.Context, ids []string) ([]models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
}

// findEmployee loads an employee and maps a missing row to NOT_FOUND.
func findEmployee(ctx context.Context, repo employeeFinder, id string) (*models.Employee, error) {
	emp, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return emp, nil
}

// unitScope returns the unit actor is pinned to, or "" for unscoped roles.
// A unit incharge without an assigned unit is refused outright.
func unitScope(actor *models.JWTClaims) (string, error) {
	if actor == nil || actor.Role != models.RoleUnitIncharge {
		return "", nil
	}
	if actor.AssignedUnit == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "no unit assigned to this account")
	}
	return actor.AssignedUnit, nil
}

// authorizeEmployee enforces that unit incharges only act on their own unit.
func authorizeEmployee(actor *models.JWTClaims, emp *models.Employee) error {
	scope, err := unitScope(actor)
	if err != nil {
		return err
	}
	if scope != "" && !emp.InUnit(scope) {
		return appErrors.Clone(appErrors.ErrForbidden, "employee belongs to another unit")
	}
	return nil
}

// EmployeeService exposes the employee directory.
type EmployeeService struct {
	repo      employeeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs an EmployeeService.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List returns a page of employees. Unit incharges are pinned to their unit.
func (s *EmployeeService) List(ctx context.Context, actor *models.JWTClaims, q dto.EmployeeListQuery) ([]models.Employee, *models.Pagination, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee filter")
	}
	page, size := models.NormalizePage(q.Page, q.PageSize)
	filter := models.EmployeeFilter{UnitID: q.UnitID, Search: q.Search, IncludeInactive: q.IncludeInactive, Page: page, PageSize: size}
	if scope, err := unitScope(actor); err != nil {
		return nil, nil, err
	} else if scope != "" {
		filter.UnitID = scope
	}

	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list employees")
	}
	return employees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one employee visible to actor.
func (s *EmployeeService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Employee, error) {
	emp, err := findEmployee(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

// Names resolves display names for ids. Unknown ids are omitted.
func (s *EmployeeService) Names(ctx context.Context, ids []string) (map[string]string, error) {
	employees, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load employee names")
	}
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	return names, nil
}
