package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type leaveCoverage interface {
	FindActiveCovering(ctx context.Context, employeeID string, date models.Date) (*models.LeaveApplication, error)
}

type ongoingOutDutyFinder interface {
	FindOngoing(ctx context.Context, employeeID string) (*models.OutDuty, error)
}

// AvailabilityService answers whether an employee can be put on a roster for a day.
type AvailabilityService struct {
	leaves    leaveCoverage
	outDuties ongoingOutDutyFinder
	employees employeeFinder
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(leaves leaveCoverage, outDuties ongoingOutDutyFinder, employees employeeFinder) *AvailabilityService {
	return &AvailabilityService{leaves: leaves, outDuties: outDuties, employees: employees}
}

// Check reports the leave and out-duty that make employeeID unavailable on date, if any.
func (s *AvailabilityService) Check(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error) {
	emp, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	return s.availability(ctx, emp.ID, date)
}

// CheckOutDuty reports only the out-duty side of availability.
func (s *AvailabilityService) CheckOutDuty(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error) {
	emp, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	return s.outDutyAvailability(ctx, emp.ID, date)
}

func (s *AvailabilityService) outDutyAvailability(ctx context.Context, employeeID string, date models.Date) (*models.Availability, error) {
	result := &models.Availability{EmployeeID: employeeID, Date: date, Available: true}
	duty, err := s.ongoingOutDuty(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}
	if duty != nil {
		result.Available, result.OnOutDuty, result.OutDuty = false, true, duty
	}
	return result, nil
}

func (s *AvailabilityService) availability(ctx context.Context, employeeID string, date models.Date) (*models.Availability, error) {
	result, err := s.outDutyAvailability(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}
	leave, err := s.leaves.FindActiveCovering(ctx, employeeID, date)
	switch {
	case err == nil:
		result.Available, result.OnLeave, result.Leave = false, true, leave
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to check leave coverage")
	}
	return result, nil
}

func (s *AvailabilityService) ongoingOutDuty(ctx context.Context, employeeID string, date models.Date) (*models.OutDuty, error) {
	duty, err := s.outDuties.FindOngoing(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to check out duty")
	}
	if !duty.CoversDate(date) {
		return nil, nil
	}
	return duty, nil
}
