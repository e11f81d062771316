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
	"github.com/noah-isme/sigcom-backoffice-api/pkg/export"
)

type gateDutyStore interface {
	ListByYear(ctx context.Context, year int) ([]models.GateDuty, error)
	FindByDateYear(ctx context.Context, date, year int) (*models.GateDuty, error)
	UpsertDays(ctx context.Context, year int, days []repository.GateDutyDayUpsert, updatedBy string) ([]models.GateDuty, error)
	UpdateSlot(ctx context.Context, id string, slot models.GateSlot, employeeID *string, updatedBy string) (*models.GateDuty, error)
}

type replacementStore interface {
	Upsert(ctx context.Context, rep *models.GateDutyReplacement) error
	Delete(ctx context.Context, key models.ReplacementKey) error
	ListByMonth(ctx context.Context, year, month int) ([]models.GateDutyReplacement, error)
	ListForDay(ctx context.Context, date, month, year int) ([]models.GateDutyReplacement, error)
}

type employeeDirectory interface {
	employeeFinder
	FindByIDs(ctx context.Context, ids []string) ([]models.Employee, error)
}

// RosterExporter renders a tabular dataset into a downloadable document.
type RosterExporter interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// Replacement warning codes.
const (
	WarningOnLeave   = "ON_LEAVE"
	WarningOnOutDuty = "ON_OUT_DUTY"
)

// GateDutyService maintains the permanent roster and its month-scoped
// replacements, and assembles the effective roster from both.
type GateDutyService struct {
	duties       gateDutyStore
	replacements replacementStore
	employees    employeeDirectory
	availability *AvailabilityService
	cache        *CacheService
	metrics      *MetricsService
	audit        *AuditService
	exporters    map[string]RosterExporter
	rosterTTL    time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// GateDutyConfig wires optional collaborators of GateDutyService.
type GateDutyConfig struct {
	Cache     *CacheService
	Metrics   *MetricsService
	Audit     *AuditService
	Exporters []RosterExporter
	RosterTTL time.Duration
}

// NewGateDutyService constructs a GateDutyService.
func NewGateDutyService(duties gateDutyStore, replacements replacementStore, employees employeeDirectory, availability *AvailabilityService, cfg GateDutyConfig, validate *validator.Validate, logger *zap.Logger) *GateDutyService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	exporters := make(map[string]RosterExporter, len(cfg.Exporters))
	for _, e := range cfg.Exporters {
		exporters[e.Extension()] = e
	}
	return &GateDutyService{
		duties:       duties,
		replacements: replacements,
		employees:    employees,
		availability: availability,
		cache:        cfg.Cache,
		metrics:      cfg.Metrics,
		audit:        cfg.Audit,
		exporters:    exporters,
		rosterTTL:    cfg.RosterTTL,
		validator:    validate,
		logger:       logger,
	}
}

// ListByYear returns the permanent roster of year.
func (s *GateDutyService) ListByYear(ctx context.Context, year int) ([]models.GateDuty, error) {
	if year < minBalanceYear || year > maxBalanceYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year must be between %d and %d", minBalanceYear, maxBalanceYear))
	}
	duties, err := s.duties.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list gate duties")
	}
	return duties, nil
}

// Setup bulk-upserts the permanent roster of a year. Slots absent from a day
// keep their stored assignee.
func (s *GateDutyService) Setup(ctx context.Context, actor *models.JWTClaims, req dto.GateDutySetupRequest) ([]models.GateDuty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gate duty setup")
	}

	seen := make(map[int]struct{}, len(req.Duties))
	days := make([]repository.GateDutyDayUpsert, 0, len(req.Duties))
	var ids []string
	for _, d := range req.Duties {
		if _, dup := seen[d.Date]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %d is listed more than once", d.Date))
		}
		seen[d.Date] = struct{}{}
		slots := make(map[models.GateSlot]*string, len(d.Slots))
		for key, value := range d.Slots {
			if value != nil && *value == "" {
				value = nil
			}
			slots[models.GateSlot(key)] = value
			if value != nil {
				ids = append(ids, *value)
			}
		}
		days = append(days, repository.GateDutyDayUpsert{Date: d.Date, Slots: slots})
	}
	if err := s.requireEmployees(ctx, ids); err != nil {
		return nil, err
	}

	duties, err := s.duties.UpsertDays(ctx, req.Year, days, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save gate duties")
	}
	s.cache.Invalidate(ctx, RosterCachePattern(req.Year))
	s.audit.Record(ctx, actor.UserID, models.AuditActionGateDutySetup, "gate_duty", fmt.Sprintf("%d", req.Year), nil, req)
	s.logger.Info("gate duty roster saved", zap.Int("year", req.Year), zap.Int("days", len(duties)))
	return duties, nil
}

// UpdateSlot sets or clears one permanent slot.
func (s *GateDutyService) UpdateSlot(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateSlotRequest) (*models.GateDuty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	employeeID := req.EmployeeID
	if employeeID != nil && *employeeID == "" {
		employeeID = nil
	}
	if employeeID != nil {
		if err := s.requireEmployees(ctx, []string{*employeeID}); err != nil {
			return nil, err
		}
	}
	duty, err := s.duties.UpdateSlot(ctx, id, models.GateSlot(req.Slot), employeeID, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gate duty not found")
		}
		return nil, appErrors.Internal(err, "failed to update gate duty slot")
	}
	s.cache.Invalidate(ctx, RosterCachePattern(duty.Year))
	s.audit.Record(ctx, actor.UserID, models.AuditActionGateDutySlot, "gate_duty", duty.ID, nil, req)
	return duty, nil
}

func (s *GateDutyService) requireEmployees(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	list := make([]string, 0, len(unique))
	for id := range unique {
		list = append(list, id)
	}
	sort.Strings(list)
	found, err := s.employees.FindByIDs(ctx, list)
	if err != nil {
		return appErrors.Internal(err, "failed to load employees")
	}
	known := make(map[string]struct{}, len(found))
	for _, e := range found {
		known[e.ID] = struct{}{}
	}
	for _, id := range list {
		if _, ok := known[id]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown employee %s", id))
		}
	}
	return nil
}

// Replace overrides one slot for one month. A candidate on leave or out duty
// yields a warning; without Force nothing is written.
func (s *GateDutyService) Replace(ctx context.Context, actor *models.JWTClaims, req dto.ReplacementRequest) (*dto.ReplacementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replacement payload")
	}
	if !models.ValidDayOfMonth(req.Year, req.Month, req.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%d-%02d has no day %d", req.Year, req.Month, req.Date))
	}
	slot := models.GateSlot(req.Slot)

	duty, err := s.duties.FindByDateYear(ctx, req.Date, req.Year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no gate duty configured for that date")
		}
		return nil, appErrors.Internal(err, "failed to load gate duty")
	}
	original := duty.Assignee(slot)
	if original == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot has no permanent assignee to replace")
	}
	candidate, err := findEmployee(ctx, s.employees, req.ReplacementEmployeeID)
	if err != nil {
		return nil, err
	}
	if candidate.ID == original {
		return nil, appErrors.Clone(appErrors.ErrValidation, "replacement must differ from the permanent assignee")
	}

	day := models.NewDate(req.Year, time.Month(req.Month), req.Date)
	availability, err := s.availability.availability(ctx, candidate.ID, day)
	if err != nil {
		return nil, err
	}
	result := &dto.ReplacementResult{Warning: replacementWarning(candidate, availability)}
	if result.Warning != nil && !req.Force {
		s.metrics.RecordReplacement(ReplacementOutcomeWarned)
		return result, nil
	}

	rep := &models.GateDutyReplacement{
		Date:                  req.Date,
		Month:                 req.Month,
		Year:                  req.Year,
		Slot:                  slot,
		OriginalEmployeeID:    original,
		ReplacementEmployeeID: candidate.ID,
		Reason:                req.Reason,
		CreatedBy:             actor.UserID,
	}
	if err := s.replacements.Upsert(ctx, rep); err != nil {
		return nil, appErrors.Internal(err, "failed to save replacement")
	}
	result.Replacement = rep
	result.Applied = true

	outcome := ReplacementOutcomeApplied
	if result.Warning != nil {
		outcome = ReplacementOutcomeForced
	}
	s.metrics.RecordReplacement(outcome)
	s.cache.Invalidate(ctx, RosterCachePattern(req.Year))
	s.audit.Record(ctx, actor.UserID, models.AuditActionReplacementUpsert, "gate_duty_replacement", rep.ID, nil, rep)
	s.logger.Info("gate duty replacement saved",
		zap.String("slot", req.Slot),
		zap.String("day", day.String()),
		zap.String("replacement_employee_id", candidate.ID),
		zap.String("outcome", outcome))
	return result, nil
}

func replacementWarning(emp *models.Employee, a *models.Availability) *dto.ReplacementWarning {
	switch {
	case a.OnLeave:
		return &dto.ReplacementWarning{
			Code:    WarningOnLeave,
			Message: fmt.Sprintf("%s is on %s leave from %s to %s", emp.Name, a.Leave.LeaveType, a.Leave.StartDate, a.Leave.EndDate),
			Leave:   a.Leave,
		}
	case a.OnOutDuty:
		return &dto.ReplacementWarning{
			Code:    WarningOnOutDuty,
			Message: fmt.Sprintf("%s is on out duty at %s since %s", emp.Name, a.OutDuty.Location, a.OutDuty.StartDate),
			OutDuty: a.OutDuty,
		}
	}
	return nil
}

// DeleteReplacement restores the permanent assignee for one month-instance.
func (s *GateDutyService) DeleteReplacement(ctx context.Context, actor *models.JWTClaims, q dto.ReplacementKeyQuery) error {
	if err := s.validator.Struct(q); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replacement key")
	}
	key := models.ReplacementKey{Date: q.Date, Month: q.Month, Year: q.Year, Slot: models.GateSlot(q.Slot)}
	if err := s.replacements.Delete(ctx, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "replacement not found")
		}
		return appErrors.Internal(err, "failed to delete replacement")
	}
	s.metrics.RecordReplacement(ReplacementOutcomeDeleted)
	s.cache.Invalidate(ctx, RosterCachePattern(q.Year))
	s.audit.Record(ctx, actor.UserID, models.AuditActionReplacementDelete, "gate_duty_replacement", "", key, nil)
	return nil
}

// ListReplacements returns the overrides of one month.
func (s *GateDutyService) ListReplacements(ctx context.Context, year, month int) ([]models.GateDutyReplacement, error) {
	reps, err := s.replacements.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list replacements")
	}
	return reps, nil
}

// Roster returns the effective roster of a month, replacements taking
// precedence over permanent assignees.
func (s *GateDutyService) Roster(ctx context.Context, year, month int) (*models.MonthRoster, error) {
	if year < minBalanceYear || year > maxBalanceYear || month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid roster month")
	}
	key := RosterCacheKey(year, month)
	var cached models.MonthRoster
	if s.cache.Get(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	duties, err := s.duties.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list gate duties")
	}
	reps, err := s.replacements.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list replacements")
	}
	roster := models.AssembleRoster(year, month, duties, reps)
	if ids := roster.EmployeeIDs(); len(ids) > 0 {
		employees, err := s.employees.FindByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load employee names")
		}
		names := make(map[string]string, len(employees))
		for _, e := range employees {
			names[e.ID] = e.Name
		}
		roster.ApplyNames(names)
	}
	s.cache.Set(ctx, key, roster, s.rosterTTL)
	return &roster, nil
}

var rosterHeaders = []string{"Date", "Day", "Gate", "Time", "Permanent", "On Duty", "Remarks"}

// ExportRoster renders the effective roster of a month as CSV or PDF.
func (s *GateDutyService) ExportRoster(ctx context.Context, q dto.RosterQuery) (*dto.RosterExport, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster query")
	}
	format := q.Format
	if format == "" {
		format = "csv"
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	roster, err := s.Roster(ctx, q.Year, q.Month)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Title: fmt.Sprintf("Gate Duty Roster %d-%02d", q.Year, q.Month), Headers: rosterHeaders}
	for _, day := range roster.Days {
		for _, slot := range day.Slots {
			row := map[string]string{
				"Date":      day.Date.String(),
				"Day":       day.Weekday,
				"Gate":      slot.Details.Gate,
				"Time":      slot.Details.TimeWindow,
				"Permanent": displayName(slot.PermanentEmployeeName, slot.PermanentEmployeeID),
				"On Duty":   displayName(slot.EffectiveEmployeeName, slot.EffectiveEmployeeID),
			}
			if slot.Replacement != nil {
				row["Remarks"] = "Replacement: " + slot.Replacement.Reason
			}
			data.Rows = append(data.Rows, row)
		}
	}
	body, err := exporter.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}
	return &dto.RosterExport{
		FileName:    fmt.Sprintf("gate-duty-%d-%02d.%s", q.Year, q.Month, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// EmployeeDuties lists the slots employeeID must man on date.
func (s *GateDutyService) EmployeeDuties(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) ([]models.EmployeeDuty, error) {
	emp, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeEmployee(actor, emp); err != nil {
		return nil, err
	}
	duty, err := s.duties.FindByDateYear(ctx, date.Day(), date.Year())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load gate duty")
		}
		duty = nil
	}
	reps, err := s.replacements.ListForDay(ctx, date.Day(), int(date.Month()), date.Year())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list replacements")
	}
	return models.DutiesForEmployee(emp.ID, duty, reps), nil
}
