package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/repository"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type leaveStore interface {
	leaveTxRunner
	FindByID(ctx context.Context, id string) (*models.LeaveApplication, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveApplication, int, error)
	ListCurrent(ctx context.Context, date models.Date, unitID string) ([]models.LeaveApplication, error)
}

// LeaveConfig carries ledger defaults and the calendar "today" is taken from.
type LeaveConfig struct {
	Defaults models.BalanceDefaults
	Location *time.Location
	Now      func() time.Time
}

// Leave action labels used for metrics.
const (
	leaveActionCreate         = "create"
	leaveActionRequest        = "request"
	leaveActionDecision       = "decision"
	leaveActionEdit           = "edit"
	leaveActionExtend         = "extend"
	leaveActionAddMedical     = "add_medical"
	leaveActionExtendMedical  = "extend_medical"
	leaveActionReturn         = "return"
	leaveActionCancel         = "cancel"
	leaveActionApproveMedical = "approve_medical"
)

// LeaveService runs the leave lifecycle. Every mutation locks the leave row
// and the balance rows it touches in one transaction, so a rejected step
// leaves neither record changed.
type LeaveService struct {
	leaves    leaveStore
	employees employeeFinder
	holidays  holidayCalendar
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.BalanceDefaults
	location  *time.Location
	now       func() time.Time
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(leaves leaveStore, employees employeeFinder, holidays holidayCalendar, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg LeaveConfig) *LeaveService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LeaveService{
		leaves:    leaves,
		employees: employees,
		holidays:  holidays,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		defaults:  cfg.Defaults,
		location:  cfg.Location,
		now:       cfg.Now,
	}
}

func (s *LeaveService) today() models.Date {
	return models.DateOf(s.now().In(s.location))
}

// leaveShape is the date-derived part of an application.
type leaveShape struct {
	leaveType       models.LeaveType
	start           models.Date
	end             models.Date
	totalDays       int
	workingDays     int
	permissionDates []models.Date
}

func (sh leaveShape) applyTo(l *models.LeaveApplication) {
	l.LeaveType = sh.leaveType
	l.StartDate = sh.start
	l.EndDate = sh.end
	l.TotalDays = sh.totalDays
	l.WorkingDays = sh.workingDays
	l.PermissionDates = sh.permissionDates
	l.PermissionsUsed = len(sh.permissionDates)
	l.RecomputeArrival()
}

func parseDates(raw []string) ([]models.Date, error) {
	dates := make([]models.Date, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		d, err := models.ParseDate(r)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid date %q", r))
		}
		if _, dup := seen[d.String()]; dup {
			continue
		}
		seen[d.String()] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func parseRange(start, end string) (models.Date, models.Date, error) {
	from, err := models.ParseDate(start)
	if err != nil {
		return models.Date{}, models.Date{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	to, err := models.ParseDate(end)
	if err != nil {
		return models.Date{}, models.Date{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	if to.Before(from) {
		return models.Date{}, models.Date{}, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}
	return from, to, nil
}

// shape validates the date rules of a leave type and derives its day counts.
func (s *LeaveService) shape(ctx context.Context, emp *models.Employee, leaveType models.LeaveType, start, end string, rawPermissions []string) (leaveShape, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return leaveShape{}, err
	}
	if leaveType.FemaleOnly() && emp.Gender != models.GenderFemale {
		return leaveShape{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s leave is only available to female employees", leaveType))
	}
	permissions, err := parseDates(rawPermissions)
	if err != nil {
		return leaveShape{}, err
	}
	if len(permissions) > 0 && leaveType != models.LeaveTypeCasual {
		return leaveShape{}, appErrors.Clone(appErrors.ErrValidation, "permission dates apply to casual leave only")
	}

	sh := leaveShape{leaveType: leaveType, start: from, end: to, totalDays: models.InclusiveDays(from, to), permissionDates: permissions}
	sh.workingDays = sh.totalDays

	switch leaveType {
	case models.LeaveTypeCasual:
		if len(permissions) == 0 {
			break
		}
		checks, err := s.checkPermissionDates(ctx, permissions, &from, &to)
		if err != nil {
			return leaveShape{}, err
		}
		for _, c := range checks {
			if !c.Valid {
				return leaveShape{}, appErrors.Clone(appErrors.ErrInvalidPermissionDate, c.Reason)
			}
		}
		sh.workingDays = sh.totalDays - len(permissions)
	case models.LeaveTypePermission:
		checks, err := s.checkPermissionDates(ctx, models.EachDay(from, to), nil, nil)
		if err != nil {
			return leaveShape{}, err
		}
		for _, c := range checks {
			if !c.Valid {
				return leaveShape{}, appErrors.Clone(appErrors.ErrInvalidPermissionDate, c.Reason)
			}
		}
	case models.LeaveTypeRestricted:
		restricted, err := holidaySet(ctx, s.holidays, from, to, models.HolidayRestricted)
		if err != nil {
			return leaveShape{}, err
		}
		for _, d := range models.EachDay(from, to) {
			if _, ok := restricted[d.String()]; !ok {
				return leaveShape{}, appErrors.Clone(appErrors.ErrInvalidRestrictedLeaveDate, fmt.Sprintf("%s is not a restricted holiday", d))
			}
		}
	}
	return sh, nil
}

// checkPermissionDates judges each date: it must fall inside [from, to] when a
// range is given, and on a weekend or an active gazetted holiday.
func (s *LeaveService) checkPermissionDates(ctx context.Context, dates []models.Date, from, to *models.Date) ([]models.PermissionDateCheck, error) {
	if len(dates) == 0 {
		return []models.PermissionDateCheck{}, nil
	}
	first, last := dates[0], dates[0]
	for _, d := range dates {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	gazetted, err := holidaySet(ctx, s.holidays, first, last, models.HolidayGazetted)
	if err != nil {
		return nil, err
	}

	checks := make([]models.PermissionDateCheck, 0, len(dates))
	for _, d := range dates {
		check := models.PermissionDateCheck{Date: d, Valid: true}
		_, holiday := gazetted[d.String()]
		switch {
		case from != nil && to != nil && !d.Within(*from, *to):
			check.Valid = false
			check.Reason = fmt.Sprintf("permission date %s is outside the leave period", d)
		case !d.IsWeekend() && !holiday:
			check.Valid = false
			check.Reason = fmt.Sprintf("permission date %s is neither a weekend nor a gazetted holiday", d)
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// ValidatePermissions is a dry run of the permission-date rules.
func (s *LeaveService) ValidatePermissions(ctx context.Context, req dto.ValidatePermissionsRequest) (*dto.ValidatePermissionsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permission payload")
	}
	dates, err := parseDates(req.Dates)
	if err != nil {
		return nil, err
	}
	var from, to *models.Date
	if req.StartDate != "" {
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}
		from, to = &start, &end
	}
	checks, err := s.checkPermissionDates(ctx, dates, from, to)
	if err != nil {
		return nil, err
	}
	resp := &dto.ValidatePermissionsResponse{Valid: true, Dates: checks}
	for _, c := range checks {
		if !c.Valid {
			resp.Valid = false
		}
	}
	return resp, nil
}

// Create records a leave that starts immediately and debits the ledger.
func (s *LeaveService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.LeaveApplication, error) {
	return s.open(ctx, actor, req, models.LeaveStatusOnLeave)
}

// Request records a leave awaiting approval. Nothing is debited until approval.
func (s *LeaveService) Request(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.LeaveApplication, error) {
	return s.open(ctx, actor, req, models.LeaveStatusPendingApproval)
}

func (s *LeaveService) open(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest, status models.LeaveStatus) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	emp, err := findEmployee(ctx, s.employees, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	sh, err := s.shape(ctx, emp, models.LeaveType(req.LeaveType), req.StartDate, req.EndDate, req.PermissionDates)
	if err != nil {
		return nil, err
	}

	leave := &models.LeaveApplication{
		EmployeeID:            emp.ID,
		EmployeeName:          emp.Name,
		UnitID:                emp.UnitID,
		Remarks:               req.Remarks,
		Status:                status,
		Extensions:            []models.LeaveExtension{},
		MedicalHistory:        []models.MedicalHistoryEntry{},
		MedicalApprovalStatus: models.MedicalApprovalNone,
		CreatedBy:             actor.UserID,
	}
	sh.applyTo(leave)

	err = s.leaves.WithinTx(ctx, func(tx repository.LeaveTx) error {
		if status == models.LeaveStatusOnLeave {
			if err := s.debit(ctx, tx, leave); err != nil {
				return err
			}
		}
		if err := tx.InsertLeave(ctx, leave); err != nil {
			return appErrors.Internal(err, "failed to save leave")
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to save leave")
	}

	action, label := models.AuditActionLeaveCreate, leaveActionCreate
	if status == models.LeaveStatusPendingApproval {
		action, label = models.AuditActionLeaveRequest, leaveActionRequest
	}
	s.committed(ctx, actor, action, label, leave, nil)
	return leave, nil
}

// debit charges the leave's plan against its balance year.
func (s *LeaveService) debit(ctx context.Context, tx repository.LeaveTx, leave *models.LeaveApplication) error {
	balance, err := lockBalance(ctx, tx, leave.EmployeeID, leave.BalanceYear(), s.defaults)
	if err != nil {
		return err
	}
	if err := balance.ApplyPlan(leave.DebitPlan()); err != nil {
		return ledgerError(err)
	}
	if err := tx.UpdateBalance(ctx, balance); err != nil {
		return appErrors.Internal(err, "failed to update leave balance")
	}
	return nil
}

// mutate locks the leave, lets fn change it, then persists it.
func (s *LeaveService) mutate(ctx context.Context, actor *models.JWTClaims, id string, fn func(tx repository.LeaveTx, leave *models.LeaveApplication) error) (before, after *models.LeaveApplication, err error) {
	err = s.leaves.WithinTx(ctx, func(tx repository.LeaveTx) error {
		leave, err := tx.LockLeave(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "leave not found")
			}
			return appErrors.Internal(err, "failed to load leave")
		}
		if err := authorizeLeave(actor, leave); err != nil {
			return err
		}
		snapshot := *leave
		before = &snapshot
		if err := fn(tx, leave); err != nil {
			return err
		}
		if err := tx.UpdateLeave(ctx, leave); err != nil {
			return appErrors.Internal(err, "failed to update leave")
		}
		after = leave
		return nil
	})
	if err != nil {
		return nil, nil, asAppError(err, "failed to update leave")
	}
	return before, after, nil
}

func (s *LeaveService) committed(ctx context.Context, actor *models.JWTClaims, action, label string, leave, before *models.LeaveApplication) {
	var old interface{}
	if before != nil {
		old = before
	}
	s.audit.Record(ctx, actor.UserID, action, "leave", leave.ID, old, leave)
	s.metrics.RecordLeaveAction(label)
	s.logger.Info("leave "+label,
		zap.String("leave_id", leave.ID),
		zap.String("employee_id", leave.EmployeeID),
		zap.String("status", string(leave.Status)),
		zap.String("actor_id", actor.UserID))
}

func requireOpenLeave(leave *models.LeaveApplication) error {
	if leave.Status != models.LeaveStatusOnLeave {
		return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("leave is %s, not ON_LEAVE", leave.Status))
	}
	return nil
}

// Decide approves or rejects a pending request.
func (s *LeaveService) Decide(ctx context.Context, actor *models.JWTClaims, id string, req dto.LeaveDecisionRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if leave.Status != models.LeaveStatusPendingApproval {
			return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("leave is %s, not PENDING_APPROVAL", leave.Status))
		}
		now := s.now().UTC()
		leave.DecidedBy = &actor.UserID
		leave.DecidedAt = &now
		leave.DecisionReason = req.Reason
		if req.Decision == dto.DecisionRejected {
			leave.Status = models.LeaveStatusRejected
			return nil
		}
		if err := s.debit(ctx, tx, leave); err != nil {
			return err
		}
		leave.Status = models.LeaveStatusOnLeave
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveDecision, leaveActionDecision, leave, before)
	return leave, nil
}

// Edit redefines an open leave: the old debit is restored, the new one is
// checked, and both are committed together or not at all.
func (s *LeaveService) Edit(ctx context.Context, actor *models.JWTClaims, id string, req dto.EditLeaveRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if leave.Status != models.LeaveStatusOnLeave || leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrEditNotAllowed, "only an ON_LEAVE application without medical rest can be edited")
		}
		emp, err := findEmployee(ctx, s.employees, leave.EmployeeID)
		if err != nil {
			return err
		}
		sh, err := s.shape(ctx, emp, models.LeaveType(req.LeaveType), req.StartDate, req.EndDate, req.PermissionDates)
		if err != nil {
			return err
		}

		oldYear, oldPlan := leave.BalanceYear(), leave.DebitPlan()
		sh.applyTo(leave)
		leave.Remarks = req.Remarks
		newYear, newPlan := leave.BalanceYear(), leave.DebitPlan()

		if oldYear == newYear {
			balance, err := lockBalance(ctx, tx, leave.EmployeeID, oldYear, s.defaults)
			if err != nil {
				return err
			}
			if err := balance.RevertPlan(oldPlan); err != nil {
				return ledgerError(err)
			}
			if err := balance.ApplyPlan(newPlan); err != nil {
				return ledgerError(err)
			}
			if err := tx.UpdateBalance(ctx, balance); err != nil {
				return appErrors.Internal(err, "failed to update leave balance")
			}
			return nil
		}

		// Lock both years in ascending order so concurrent cross-year edits cannot deadlock.
		years := []int{oldYear, newYear}
		sort.Ints(years)
		balances := make(map[int]*models.LeaveBalance, 2)
		for _, y := range years {
			b, err := lockBalance(ctx, tx, leave.EmployeeID, y, s.defaults)
			if err != nil {
				return err
			}
			balances[y] = b
		}
		if err := balances[oldYear].RevertPlan(oldPlan); err != nil {
			return ledgerError(err)
		}
		if err := balances[newYear].ApplyPlan(newPlan); err != nil {
			return ledgerError(err)
		}
		for _, y := range years {
			if err := tx.UpdateBalance(ctx, balances[y]); err != nil {
				return appErrors.Internal(err, "failed to update leave balance")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveEdit, leaveActionEdit, leave, before)
	return leave, nil
}

// Extend lengthens an open casual leave and debits the extra days.
func (s *LeaveService) Extend(ctx context.Context, actor *models.JWTClaims, id string, req dto.ExtendLeaveRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extension payload")
	}
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if err := requireOpenLeave(leave); err != nil {
			return err
		}
		if leave.LeaveType != models.LeaveTypeCasual {
			return appErrors.Clone(appErrors.ErrStateConflict, "only casual leave can be extended")
		}
		if leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrStateConflict, "leave with medical rest cannot be extended")
		}

		balance, err := lockBalance(ctx, tx, leave.EmployeeID, leave.BalanceYear(), s.defaults)
		if err != nil {
			return err
		}
		if err := balance.Debit(models.CategoryCasual, req.ExtendedDays); err != nil {
			return ledgerError(err)
		}
		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return appErrors.Internal(err, "failed to update leave balance")
		}

		leave.EndDate = leave.EndDate.AddDays(req.ExtendedDays)
		leave.TotalDays += req.ExtendedDays
		leave.WorkingDays += req.ExtendedDays
		leave.Extensions = append(leave.Extensions, models.LeaveExtension{
			Days:       req.ExtendedDays,
			Reason:     req.Reason,
			ExtendedBy: actor.UserID,
			ExtendedAt: s.now().UTC(),
		})
		leave.RecomputeArrival()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveExtend, leaveActionExtend, leave, before)
	return leave, nil
}

// AddMedical attaches medical rest starting tomorrow. The unused casual tail
// is provisionally cancelled and only reconciled at approval.
func (s *LeaveService) AddMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.AddMedicalRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid medical payload")
	}
	today := s.today()
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if err := requireOpenLeave(leave); err != nil {
			return err
		}
		if leave.LeaveType != models.LeaveTypeCasual {
			return appErrors.Clone(appErrors.ErrStateConflict, "medical rest can only be added to casual leave")
		}
		if leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrStateConflict, "medical rest already added")
		}
		if !today.Within(leave.StartDate, leave.EndDate) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("medical rest can only be added between %s and %s", leave.StartDate, leave.EndDate))
		}

		availed := models.InclusiveDays(leave.StartDate, today)
		leave.MedicalRest = &models.MedicalRest{
			StartDate:       today.AddDays(1),
			EndDate:         today.AddDays(req.MedicalDays),
			Days:            req.MedicalDays,
			Reason:          req.Reason,
			CLDaysAvailed:   availed,
			CLDaysCancelled: leave.TotalDays - availed,
		}
		leave.MedicalApprovalStatus = models.MedicalApprovalPending
		leave.MedicalHistory = append(leave.MedicalHistory, models.MedicalHistoryEntry{
			Action:  models.MedicalHistoryActionAdd,
			Days:    req.MedicalDays,
			Reason:  req.Reason,
			EndDate: leave.MedicalRest.EndDate,
			ActedBy: actor.UserID,
			ActedAt: s.now().UTC(),
		})
		leave.RecomputeArrival()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveAddMedical, leaveActionAddMedical, leave, before)
	return leave, nil
}

// ExtendMedical lengthens existing medical rest.
func (s *LeaveService) ExtendMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.ExtendMedicalRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid medical extension payload")
	}
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if err := requireOpenLeave(leave); err != nil {
			return err
		}
		if !leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrStateConflict, "leave has no medical rest to extend")
		}
		rest := *leave.MedicalRest
		rest.EndDate = rest.EndDate.AddDays(req.AdditionalDays)
		rest.Days += req.AdditionalDays
		leave.MedicalRest = &rest
		leave.MedicalHistory = append(leave.MedicalHistory, models.MedicalHistoryEntry{
			Action:  models.MedicalHistoryActionExtend,
			Days:    req.AdditionalDays,
			Reason:  req.Reason,
			EndDate: rest.EndDate,
			ActedBy: actor.UserID,
			ActedAt: s.now().UTC(),
		})
		leave.RecomputeArrival()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveExtendMedical, leaveActionExtendMedical, leave, before)
	return leave, nil
}

// MarkReturned closes an open leave.
func (s *LeaveService) MarkReturned(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if leave.Status == models.LeaveStatusReturned {
			return appErrors.Clone(appErrors.ErrStateConflict, "leave already marked returned")
		}
		if err := requireOpenLeave(leave); err != nil {
			return err
		}
		now := s.now().UTC()
		leave.Status = models.LeaveStatusReturned
		leave.ReturnedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveReturn, leaveActionReturn, leave, before)
	return leave, nil
}

// Cancel withdraws an open leave and credits back its whole debit.
func (s *LeaveService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if err := requireOpenLeave(leave); err != nil {
			return err
		}
		if leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrStateConflict, "leave with medical rest cannot be cancelled")
		}
		balance, err := lockBalance(ctx, tx, leave.EmployeeID, leave.BalanceYear(), s.defaults)
		if err != nil {
			return err
		}
		if err := balance.RevertPlan(leave.DebitPlan()); err != nil {
			return ledgerError(err)
		}
		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return appErrors.Internal(err, "failed to update leave balance")
		}
		leave.Status = models.LeaveStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveCancel, leaveActionCancel, leave, before)
	return leave, nil
}

// ApproveMedical settles the medical rest of a returned leave. The cancelled
// casual tail goes back to CL and the rest days are booked as EL or medical.
func (s *LeaveService) ApproveMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApproveMedicalRequest) (*models.LeaveApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	before, leave, err := s.mutate(ctx, actor, id, func(tx repository.LeaveTx, leave *models.LeaveApplication) error {
		if leave.Status != models.LeaveStatusReturned || leave.MedicalApprovalStatus != models.MedicalApprovalPending || !leave.HasMedicalRest() {
			return appErrors.Clone(appErrors.ErrStateConflict, "medical approval requires a RETURNED leave with PENDING medical rest")
		}
		now := s.now().UTC()
		leave.MedicalApprovedBy = &actor.UserID
		leave.MedicalApprovedAt = &now
		if req.Remarks != "" {
			leave.DecisionReason = req.Remarks
		}
		if req.ConvertTo == dto.ConvertToReject {
			leave.MedicalApprovalStatus = models.MedicalApprovalRejected
			return nil
		}

		balance, err := lockBalance(ctx, tx, leave.EmployeeID, leave.BalanceYear(), s.defaults)
		if err != nil {
			return err
		}
		// Only casual days of the cancelled tail return to CL; permission
		// dates in the tail stay consumed.
		lastAvailed := leave.StartDate.AddDays(leave.MedicalRest.CLDaysAvailed - 1)
		restored := min(leave.CasualDaysAfter(lastAvailed), leave.WorkingDays)
		if err := balance.Credit(models.CategoryCasual, restored); err != nil {
			return ledgerError(err)
		}
		leave.WorkingDays -= restored

		category, status := models.CategoryMedical, models.MedicalApprovedAsMedical
		if req.ConvertTo == dto.ConvertToEL {
			category, status = models.CategoryEarned, models.MedicalApprovedAsEL
		}
		if err := balance.Debit(category, leave.MedicalRest.Days); err != nil {
			return ledgerError(err)
		}
		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return appErrors.Internal(err, "failed to update leave balance")
		}
		leave.MedicalApprovalStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, actor, models.AuditActionLeaveApproveMedical, leaveActionApproveMedical, leave, before)
	return leave, nil
}

// authorizeLeave keeps unit incharges inside their unit.
func authorizeLeave(actor *models.JWTClaims, leave *models.LeaveApplication) error {
	scope, err := unitScope(actor)
	if err != nil {
		return err
	}
	if scope != "" && (leave.UnitID == nil || *leave.UnitID != scope) {
		return appErrors.Clone(appErrors.ErrForbidden, "leave belongs to another unit")
	}
	return nil
}

// Get returns one leave visible to actor.
func (s *LeaveService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return nil, appErrors.Internal(err, "failed to load leave")
	}
	if err := authorizeLeave(actor, leave); err != nil {
		return nil, err
	}
	return leave, nil
}

// List returns a filtered page of leaves. Unit incharges see their unit only.
func (s *LeaveService) List(ctx context.Context, actor *models.JWTClaims, q dto.LeaveListQuery) ([]models.LeaveApplication, *models.Pagination, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave filter")
	}
	page, size := models.NormalizePage(q.Page, q.PageSize)
	filter := models.LeaveFilter{
		EmployeeID: q.EmployeeID,
		Status:     models.LeaveStatus(q.Status),
		LeaveType:  models.LeaveType(q.LeaveType),
		Page:       page,
		PageSize:   size,
	}
	if scope, err := unitScope(actor); err != nil {
		return nil, nil, err
	} else if scope != "" {
		filter.UnitID = scope
	}
	if q.From != "" {
		from, err := models.ParseDate(q.From)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from date")
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := models.ParseDate(q.To)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid to date")
		}
		filter.To = &to
	}

	leaves, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list leaves")
	}
	return leaves, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Current lists employees on leave today, scoped by the caller's assigned unit.
func (s *LeaveService) Current(ctx context.Context, actor *models.JWTClaims) ([]models.LeaveApplication, error) {
	unit, err := unitScope(actor)
	if err != nil {
		return nil, err
	}
	leaves, err := s.leaves.ListCurrent(ctx, s.today(), unit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list current leaves")
	}
	return leaves, nil
}
