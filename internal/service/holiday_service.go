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

type holidayCalendar interface {
	ListInRange(ctx context.Context, from, to models.Date, t models.HolidayType) ([]models.Holiday, error)
}

type holidayRepository interface {
	holidayCalendar
	IsHoliday(ctx context.Context, date models.Date, t models.HolidayType) (bool, error)
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
	Upsert(ctx context.Context, h *models.Holiday) error
	Deactivate(ctx context.Context, id string) error
}

// holidaySet returns the active holidays of type t in [from, to] keyed by date.
func holidaySet(ctx context.Context, cal holidayCalendar, from, to models.Date, t models.HolidayType) (map[string]models.Holiday, error) {
	holidays, err := cal.ListInRange(ctx, from, to, t)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load holiday calendar")
	}
	set := make(map[string]models.Holiday, len(holidays))
	for _, h := range holidays {
		set[h.Date.String()] = h
	}
	return set, nil
}

// HolidayService maintains the gazetted and restricted holiday calendar.
type HolidayService struct {
	repo      holidayRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(repo holidayRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns active holidays for the given year and type.
func (s *HolidayService) List(ctx context.Context, q dto.HolidayListQuery) ([]models.Holiday, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday filter")
	}
	holidays, err := s.repo.List(ctx, models.HolidayFilter{Year: q.Year, Type: models.HolidayType(q.Type)})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list holidays")
	}
	return holidays, nil
}

// IsHoliday answers whether date is an active holiday of type t.
func (s *HolidayService) IsHoliday(ctx context.Context, date models.Date, t models.HolidayType) (bool, error) {
	ok, err := s.repo.IsHoliday(ctx, date, t)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check holiday")
	}
	return ok, nil
}

// Create adds or reactivates a holiday.
func (s *HolidayService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateHolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday date")
	}
	holiday := &models.Holiday{Date: date, Name: req.Name, Type: models.HolidayType(req.Type)}
	if err := s.repo.Upsert(ctx, holiday); err != nil {
		return nil, appErrors.Internal(err, "failed to save holiday")
	}
	s.audit.Record(ctx, actor.UserID, models.AuditActionHolidayCreate, "holiday", holiday.ID, nil, holiday)
	return holiday, nil
}

// Deactivate soft-deletes a holiday.
func (s *HolidayService) Deactivate(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Internal(err, "failed to deactivate holiday")
	}
	s.audit.Record(ctx, actor.UserID, models.AuditActionHolidayDeactivate, "holiday", id, nil, map[string]bool{"active": false})
	return nil
}
