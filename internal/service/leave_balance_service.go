package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/repository"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type balanceStore interface {
	FindByEmployeeYear(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error)
	InsertIfAbsent(ctx context.Context, b *models.LeaveBalance) error
}

type leaveTxRunner interface {
	WithinTx(ctx context.Context, fn func(tx repository.LeaveTx) error) error
}

const (
	minBalanceYear = 2000
	maxBalanceYear = 2100
)

// lockBalance locks the {employee, year} balance inside tx, creating it with
// defaults first when the year has never been touched.
func lockBalance(ctx context.Context, tx repository.LeaveTx, employeeID string, year int, defaults models.BalanceDefaults) (*models.LeaveBalance, error) {
	balance, err := tx.LockBalance(ctx, employeeID, year)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to lock leave balance")
	}
	if err := tx.InsertBalance(ctx, models.NewLeaveBalance(employeeID, year, defaults)); err != nil {
		return nil, appErrors.Internal(err, "failed to create leave balance")
	}
	balance, err = tx.LockBalance(ctx, employeeID, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock leave balance")
	}
	return balance, nil
}

// ledgerError translates a ledger rejection into the API taxonomy.
func ledgerError(err error) error {
	var insufficient *models.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return appErrors.Clone(appErrors.ErrInsufficientBalance, insufficient.Error())
	}
	return appErrors.Internal(err, "leave ledger rejected the adjustment")
}

// asAppError keeps typed errors and wraps everything else as internal.
func asAppError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

// LeaveBalanceService serves the per employee-year ledger.
type LeaveBalanceService struct {
	store     balanceStore
	tx        leaveTxRunner
	employees employeeFinder
	defaults  models.BalanceDefaults
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	inflight  singleflight.Group
}

// NewLeaveBalanceService constructs a LeaveBalanceService.
func NewLeaveBalanceService(store balanceStore, tx leaveTxRunner, employees employeeFinder, defaults models.BalanceDefaults, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *LeaveBalanceService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveBalanceService{store: store, tx: tx, employees: employees, defaults: defaults, audit: audit, validator: validate, logger: logger}
}

// Get returns the balance of an employee visible to actor, creating it on first access.
func (s *LeaveBalanceService) Get(ctx context.Context, actor *models.JWTClaims, employeeID string, year int) (*models.LeaveBalance, error) {
	if year < minBalanceYear || year > maxBalanceYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year must be between %d and %d", minBalanceYear, maxBalanceYear))
	}
	emp, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, emp.ID, year)
}

// GetOrCreate is idempotent: concurrent callers for the same key in this
// process share one lookup, and the unique {employee, year} constraint
// absorbs races with other processes. The shared lookup ignores the first
// caller's cancellation; each caller still stops waiting on its own context.
func (s *LeaveBalanceService) GetOrCreate(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	key := fmt.Sprintf("%s:%d", employeeID, year)
	flightCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		ctx := flightCtx
		balance, err := s.store.FindByEmployeeYear(ctx, employeeID, year)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if err := s.store.InsertIfAbsent(ctx, models.NewLeaveBalance(employeeID, year, s.defaults)); err != nil {
			return nil, err
		}
		s.logger.Info("leave balance created", zap.String("employee_id", employeeID), zap.Int("year", year))
		return s.store.FindByEmployeeYear(ctx, employeeID, year)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, appErrors.Internal(ctx.Err(), "leave balance lookup abandoned")
	}
	if res.Err != nil {
		return nil, appErrors.Internal(res.Err, "failed to load leave balance")
	}
	balance := *res.Val.(*models.LeaveBalance)
	return &balance, nil
}

// UpdateAllotment sets the allotments of one employee-year, keeping used days.
func (s *LeaveBalanceService) UpdateAllotment(ctx context.Context, actor *models.JWTClaims, employeeID string, req dto.UpdateBalanceRequest) (*models.LeaveBalance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid balance payload")
	}
	emp, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}

	var before, after models.LeaveBalance
	err = s.tx.WithinTx(ctx, func(tx repository.LeaveTx) error {
		balance, err := lockBalance(ctx, tx, emp.ID, req.Year, s.defaults)
		if err != nil {
			return err
		}
		before = *balance

		allotments := []struct {
			category models.LeaveCategory
			total    *int
		}{
			{models.CategoryCasual, req.CasualTotal},
			{models.CategoryPermissions, req.PermissionsTotal},
			{models.CategoryRestricted, req.RestrictedTotal},
			{models.CategoryChildCare, req.ChildCareTotal},
			{models.CategoryMaternity, req.MaternityTotal},
		}
		for _, a := range allotments {
			if a.total == nil {
				continue
			}
			if err := balance.SetAllotment(a.category, *a.total); err != nil {
				return ledgerError(err)
			}
		}
		if req.EarnedCarriedForward != nil || req.EarnedEarned != nil {
			carried, earned := balance.EarnedLeave.CarriedForward, balance.EarnedLeave.Earned
			if req.EarnedCarriedForward != nil {
				carried = *req.EarnedCarriedForward
			}
			if req.EarnedEarned != nil {
				earned = *req.EarnedEarned
			}
			if err := balance.SetEarnedAllotment(carried, earned); err != nil {
				return ledgerError(err)
			}
		}

		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return appErrors.Internal(err, "failed to update leave balance")
		}
		after = *balance
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to update leave balance")
	}

	s.audit.Record(ctx, actor.UserID, models.AuditActionBalanceAllot, "leave_balance", after.ID, before, after)
	s.logger.Info("leave allotment updated", zap.String("employee_id", emp.ID), zap.Int("year", req.Year))
	return &after, nil
}
