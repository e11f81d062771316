package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/repository"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type outDutyRepository interface {
	ongoingOutDutyFinder
	Create(ctx context.Context, duty *models.OutDuty) error
	FindByID(ctx context.Context, id string) (*models.OutDuty, error)
	List(ctx context.Context, filter models.OutDutyFilter) ([]models.OutDuty, int, error)
	Close(ctx context.Context, id string, status models.OutDutyStatus, actualReturn *models.Date, remarks string) (*models.OutDuty, error)
}

// OutDutyService tracks employees detached away from the establishment.
type OutDutyService struct {
	repo      outDutyRepository
	employees employeeFinder
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewOutDutyService constructs an OutDutyService.
func NewOutDutyService(repo outDutyRepository, employees employeeFinder, audit *AuditService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *OutDutyService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OutDutyService{repo: repo, employees: employees, audit: audit, validator: validate, logger: logger, location: loc, now: time.Now}
}

// Create records an employee leaving on duty. One ongoing record per employee.
func (s *OutDutyService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateOutDutyRequest) (*models.OutDuty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid out duty payload")
	}
	emp, err := findEmployee(ctx, s.employees, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	duty := &models.OutDuty{
		EmployeeID: emp.ID,
		DutyType:   req.DutyType,
		Location:   req.Location,
		Purpose:    req.Purpose,
		StartDate:  start,
		Status:     models.OutDutyOngoing,
		Remarks:    req.Remarks,
		CreatedBy:  actor.UserID,
	}
	if req.ExpectedReturnDate != "" {
		expected, err := models.ParseDate(req.ExpectedReturnDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expectedReturnDate")
		}
		if expected.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expectedReturnDate must not precede startDate")
		}
		duty.ExpectedReturnDate = &expected
	}

	if _, err := s.repo.FindOngoing(ctx, emp.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "employee already has an ongoing out duty")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check out duty")
	}

	if err := s.repo.Create(ctx, duty); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "employee already has an ongoing out duty")
		}
		return nil, appErrors.Internal(err, "failed to save out duty")
	}
	s.audit.Record(ctx, actor.UserID, models.AuditActionOutDutyCreate, "out_duty", duty.ID, nil, duty)
	s.logger.Info("out duty created", zap.String("out_duty_id", duty.ID), zap.String("employee_id", emp.ID))
	return duty, nil
}

// Return closes an ongoing out-duty. The actual return date defaults to today.
func (s *OutDutyService) Return(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid out duty payload")
	}
	actual := models.DateOf(s.now().In(s.location))
	if req.ActualReturnDate != "" {
		parsed, err := models.ParseDate(req.ActualReturnDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid actualReturnDate")
		}
		actual = parsed
	}
	return s.close(ctx, actor, id, models.OutDutyReturned, &actual, req.Remarks, models.AuditActionOutDutyReturn)
}

// Cancel withdraws an ongoing out-duty that should not have been recorded.
func (s *OutDutyService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid out duty payload")
	}
	return s.close(ctx, actor, id, models.OutDutyCancelled, nil, req.Remarks, models.AuditActionOutDutyCancel)
}

func (s *OutDutyService) close(ctx context.Context, actor *models.JWTClaims, id string, status models.OutDutyStatus, actual *models.Date, remarks, action string) (*models.OutDuty, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.OutDutyOngoing {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "out duty is not ongoing")
	}
	if actual != nil && actual.Before(existing.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actualReturnDate must not precede startDate")
	}
	closed, err := s.repo.Close(ctx, id, status, actual, remarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "out duty is not ongoing")
		}
		return nil, appErrors.Internal(err, "failed to close out duty")
	}
	s.audit.Record(ctx, actor.UserID, action, "out_duty", id, existing, closed)
	return closed, nil
}

// Get returns one out-duty visible to actor.
func (s *OutDutyService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.OutDuty, error) {
	duty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "out duty not found")
		}
		return nil, appErrors.Internal(err, "failed to load out duty")
	}
	scope, err := unitScope(actor)
	if err != nil {
		return nil, err
	}
	if scope != "" {
		emp, err := findEmployee(ctx, s.employees, duty.EmployeeID)
		if err != nil {
			return nil, err
		}
		if err := authorizeEmployee(actor, emp); err != nil {
			return nil, err
		}
	}
	return duty, nil
}

// List returns a page of out-duties. Unit incharges see their unit only.
func (s *OutDutyService) List(ctx context.Context, actor *models.JWTClaims, q dto.OutDutyListQuery) ([]models.OutDuty, *models.Pagination, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid out duty filter")
	}
	page, size := models.NormalizePage(q.Page, q.PageSize)
	filter := models.OutDutyFilter{EmployeeID: q.EmployeeID, Status: models.OutDutyStatus(q.Status), Page: page, PageSize: size}
	if scope, err := unitScope(actor); err != nil {
		return nil, nil, err
	} else if scope != "" {
		filter.UnitID = scope
	}
	duties, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list out duties")
	}
	return duties, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
