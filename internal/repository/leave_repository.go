package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

// LeaveTx is the unit of work for every leave and balance mutation. Rows read
// through the Lock methods stay locked until the surrounding transaction ends.
type LeaveTx interface {
	LockLeave(ctx context.Context, id string) (*models.LeaveApplication, error)
	InsertLeave(ctx context.Context, leave *models.LeaveApplication) error
	UpdateLeave(ctx context.Context, leave *models.LeaveApplication) error
	LockBalance(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error)
	InsertBalance(ctx context.Context, balance *models.LeaveBalance) error
	UpdateBalance(ctx context.Context, balance *models.LeaveBalance) error
}

// LeaveRepository persists leave applications.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

type leaveRow struct {
	ID                    string         `db:"id"`
	EmployeeID            string         `db:"employee_id"`
	EmployeeName          sql.NullString `db:"employee_name"`
	UnitID                *string        `db:"unit_id"`
	LeaveType             string         `db:"leave_type"`
	StartDate             models.Date    `db:"start_date"`
	EndDate               models.Date    `db:"end_date"`
	TotalDays             int            `db:"total_days"`
	WorkingDays           int            `db:"working_days"`
	PermissionDates       pq.StringArray `db:"permission_dates"`
	PermissionsUsed       int            `db:"permissions_used"`
	Remarks               string         `db:"remarks"`
	Status                string         `db:"status"`
	ArrivalDate           models.Date    `db:"arrival_date"`
	Extensions            types.JSONText `db:"extensions"`
	MedicalStartDate      *models.Date   `db:"medical_start_date"`
	MedicalEndDate        *models.Date   `db:"medical_end_date"`
	MedicalDays           sql.NullInt64  `db:"medical_days"`
	MedicalReason         sql.NullString `db:"medical_reason"`
	CLDaysAvailed         sql.NullInt64  `db:"cl_days_availed"`
	CLDaysCancelled       sql.NullInt64  `db:"cl_days_cancelled"`
	MedicalHistory        types.JSONText `db:"medical_history"`
	MedicalApprovalStatus string         `db:"medical_approval_status"`
	MedicalApprovedBy     *string        `db:"medical_approved_by"`
	MedicalApprovedAt     *time.Time     `db:"medical_approved_at"`
	DecisionReason        string         `db:"decision_reason"`
	DecidedBy             *string        `db:"decided_by"`
	DecidedAt             *time.Time     `db:"decided_at"`
	ReturnedAt            *time.Time     `db:"returned_at"`
	CreatedBy             string         `db:"created_by"`
	Version               int            `db:"version"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

const leaveSelect = `SELECT l.id, l.employee_id, e.name AS employee_name, e.unit_id, l.leave_type, l.start_date, l.end_date,
l.total_days, l.working_days, l.permission_dates, l.permissions_used, l.remarks, l.status, l.arrival_date, l.extensions,
l.medical_start_date, l.medical_end_date, l.medical_days, l.medical_reason, l.cl_days_availed, l.cl_days_cancelled,
l.medical_history, l.medical_approval_status, l.medical_approved_by, l.medical_approved_at,
l.decision_reason, l.decided_by, l.decided_at, l.returned_at, l.created_by, l.version, l.created_at, l.updated_at
FROM leave_applications l JOIN employees e ON e.id = l.employee_id`

// leaveLastDay is the final day away, including medical rest.
const leaveLastDay = `GREATEST(l.end_date, COALESCE(l.medical_end_date, l.end_date))`

func (r leaveRow) toModel() (*models.LeaveApplication, error) {
	leave := &models.LeaveApplication{
		ID:                    r.ID,
		EmployeeID:            r.EmployeeID,
		EmployeeName:          r.EmployeeName.String,
		UnitID:                r.UnitID,
		LeaveType:             models.LeaveType(r.LeaveType),
		StartDate:             r.StartDate,
		EndDate:               r.EndDate,
		TotalDays:             r.TotalDays,
		WorkingDays:           r.WorkingDays,
		PermissionsUsed:       r.PermissionsUsed,
		Remarks:               r.Remarks,
		Status:                models.LeaveStatus(r.Status),
		ArrivalDate:           r.ArrivalDate,
		MedicalApprovalStatus: models.MedicalApprovalStatus(r.MedicalApprovalStatus),
		MedicalApprovedBy:     r.MedicalApprovedBy,
		MedicalApprovedAt:     r.MedicalApprovedAt,
		DecisionReason:        r.DecisionReason,
		DecidedBy:             r.DecidedBy,
		DecidedAt:             r.DecidedAt,
		ReturnedAt:            r.ReturnedAt,
		CreatedBy:             r.CreatedBy,
		Version:               r.Version,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}

	leave.PermissionDates = make([]models.Date, 0, len(r.PermissionDates))
	for _, raw := range r.PermissionDates {
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("decode permission dates: %w", err)
		}
		leave.PermissionDates = append(leave.PermissionDates, d)
	}

	leave.Extensions = []models.LeaveExtension{}
	if len(r.Extensions) > 0 {
		if err := r.Extensions.Unmarshal(&leave.Extensions); err != nil {
			return nil, fmt.Errorf("decode extensions: %w", err)
		}
	}
	leave.MedicalHistory = []models.MedicalHistoryEntry{}
	if len(r.MedicalHistory) > 0 {
		if err := r.MedicalHistory.Unmarshal(&leave.MedicalHistory); err != nil {
			return nil, fmt.Errorf("decode medical history: %w", err)
		}
	}

	if r.MedicalStartDate != nil && r.MedicalEndDate != nil {
		leave.MedicalRest = &models.MedicalRest{
			StartDate:       *r.MedicalStartDate,
			EndDate:         *r.MedicalEndDate,
			Days:            int(r.MedicalDays.Int64),
			Reason:          r.MedicalReason.String,
			CLDaysAvailed:   int(r.CLDaysAvailed.Int64),
			CLDaysCancelled: int(r.CLDaysCancelled.Int64),
		}
	}
	return leave, nil
}

func leaveRowFrom(l *models.LeaveApplication) (leaveRow, error) {
	row := leaveRow{
		ID:                    l.ID,
		EmployeeID:            l.EmployeeID,
		LeaveType:             string(l.LeaveType),
		StartDate:             l.StartDate,
		EndDate:               l.EndDate,
		TotalDays:             l.TotalDays,
		WorkingDays:           l.WorkingDays,
		PermissionDates:       make(pq.StringArray, 0, len(l.PermissionDates)),
		PermissionsUsed:       l.PermissionsUsed,
		Remarks:               l.Remarks,
		Status:                string(l.Status),
		ArrivalDate:           l.ArrivalDate,
		MedicalApprovalStatus: string(l.MedicalApprovalStatus),
		MedicalApprovedBy:     l.MedicalApprovedBy,
		MedicalApprovedAt:     l.MedicalApprovedAt,
		DecisionReason:        l.DecisionReason,
		DecidedBy:             l.DecidedBy,
		DecidedAt:             l.DecidedAt,
		ReturnedAt:            l.ReturnedAt,
		CreatedBy:             l.CreatedBy,
		Version:               l.Version,
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
	}
	for _, d := range l.PermissionDates {
		row.PermissionDates = append(row.PermissionDates, d.String())
	}

	extensions := l.Extensions
	if extensions == nil {
		extensions = []models.LeaveExtension{}
	}
	raw, err := json.Marshal(extensions)
	if err != nil {
		return leaveRow{}, fmt.Errorf("encode extensions: %w", err)
	}
	row.Extensions = types.JSONText(raw)

	history := l.MedicalHistory
	if history == nil {
		history = []models.MedicalHistoryEntry{}
	}
	raw, err = json.Marshal(history)
	if err != nil {
		return leaveRow{}, fmt.Errorf("encode medical history: %w", err)
	}
	row.MedicalHistory = types.JSONText(raw)

	if m := l.MedicalRest; m != nil {
		start, end := m.StartDate, m.EndDate
		row.MedicalStartDate = &start
		row.MedicalEndDate = &end
		row.MedicalDays = sql.NullInt64{Int64: int64(m.Days), Valid: true}
		row.MedicalReason = sql.NullString{String: m.Reason, Valid: true}
		row.CLDaysAvailed = sql.NullInt64{Int64: int64(m.CLDaysAvailed), Valid: true}
		row.CLDaysCancelled = sql.NullInt64{Int64: int64(m.CLDaysCancelled), Valid: true}
	}
	return row, nil
}

func selectLeave(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*models.LeaveApplication, error) {
	var row leaveRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select leave: %w", err)
	}
	return row.toModel()
}

func selectLeaves(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]models.LeaveApplication, error) {
	var rows []leaveRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leaves: %w", err)
	}
	leaves := make([]models.LeaveApplication, 0, len(rows))
	for _, row := range rows {
		leave, err := row.toModel()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, *leave)
	}
	return leaves, nil
}

// FindByID returns a leave application or sql.ErrNoRows.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveApplication, error) {
	return selectLeave(ctx, r.db, leaveSelect+` WHERE l.id = $1`, id)
}

// List returns a page of leaves and the total match count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveApplication, int, error) {
	where := &whereBuilder{}
	if filter.EmployeeID != "" {
		where.add("l.employee_id = $%d", filter.EmployeeID)
	}
	if filter.UnitID != "" {
		where.add("e.unit_id = $%d", filter.UnitID)
	}
	if filter.Status != "" {
		where.add("l.status = $%d", filter.Status)
	}
	if filter.LeaveType != "" {
		where.add("l.leave_type = $%d", filter.LeaveType)
	}
	if filter.From != nil {
		where.add(leaveLastDay+" >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("l.start_date <= $%d", *filter.To)
	}

	query := leaveSelect + ` WHERE 1=1` + where.sql() + ` ORDER BY l.start_date DESC, l.created_at DESC` + pageWindow(filter.Page, filter.PageSize)
	leaves, err := selectLeaves(ctx, r.db, query, where.args...)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM leave_applications l JOIN employees e ON e.id = l.employee_id WHERE 1=1` + where.sql()
	if err := r.db.GetContext(ctx, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count leaves: %w", err)
	}
	return leaves, total, nil
}

// ListCurrent returns ON_LEAVE applications covering date, optionally for one unit.
func (r *LeaveRepository) ListCurrent(ctx context.Context, date models.Date, unitID string) ([]models.LeaveApplication, error) {
	args := []interface{}{models.LeaveStatusOnLeave, date}
	query := leaveSelect + ` WHERE l.status = $1 AND l.start_date <= $2 AND ` + leaveLastDay + ` >= $2`
	if unitID != "" {
		args = append(args, unitID)
		query += ` AND e.unit_id = $3`
	}
	query += ` ORDER BY e.name ASC`
	return selectLeaves(ctx, r.db, query, args...)
}

// FindActiveCovering returns the ON_LEAVE application of employeeID covering
// date, or sql.ErrNoRows.
func (r *LeaveRepository) FindActiveCovering(ctx context.Context, employeeID string, date models.Date) (*models.LeaveApplication, error) {
	query := leaveSelect + ` WHERE l.employee_id = $1 AND l.status = $2 AND l.start_date <= $3 AND ` + leaveLastDay + ` >= $3
ORDER BY l.start_date DESC LIMIT 1`
	return selectLeave(ctx, r.db, query, employeeID, models.LeaveStatusOnLeave, date)
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (r *LeaveRepository) WithinTx(ctx context.Context, fn func(tx LeaveTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin leave transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlLeaveTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit leave transaction: %w", err)
	}
	return nil
}

type sqlLeaveTx struct {
	tx *sqlx.Tx
}

func (t *sqlLeaveTx) LockLeave(ctx context.Context, id string) (*models.LeaveApplication, error) {
	return selectLeave(ctx, t.tx, leaveSelect+` WHERE l.id = $1 FOR UPDATE OF l`, id)
}

func (t *sqlLeaveTx) InsertLeave(ctx context.Context, leave *models.LeaveApplication) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt, leave.UpdatedAt, leave.Version = now, now, 1
	row, err := leaveRowFrom(leave)
	if err != nil {
		return err
	}
	const query = `INSERT INTO leave_applications (id, employee_id, leave_type, start_date, end_date, total_days, working_days,
permission_dates, permissions_used, remarks, status, arrival_date, extensions, medical_start_date, medical_end_date,
medical_days, medical_reason, cl_days_availed, cl_days_cancelled, medical_history, medical_approval_status,
medical_approved_by, medical_approved_at, decision_reason, decided_by, decided_at, returned_at, created_by, version,
created_at, updated_at)
VALUES (:id, :employee_id, :leave_type, :start_date, :end_date, :total_days, :working_days,
:permission_dates, :permissions_used, :remarks, :status, :arrival_date, :extensions, :medical_start_date, :medical_end_date,
:medical_days, :medical_reason, :cl_days_availed, :cl_days_cancelled, :medical_history, :medical_approval_status,
:medical_approved_by, :medical_approved_at, :decision_reason, :decided_by, :decided_at, :returned_at, :created_by, :version,
:created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	return nil
}

func (t *sqlLeaveTx) UpdateLeave(ctx context.Context, leave *models.LeaveApplication) error {
	leave.UpdatedAt = time.Now().UTC()
	row, err := leaveRowFrom(leave)
	if err != nil {
		return err
	}
	const query = `UPDATE leave_applications SET leave_type = :leave_type, start_date = :start_date, end_date = :end_date,
total_days = :total_days, working_days = :working_days, permission_dates = :permission_dates,
permissions_used = :permissions_used, remarks = :remarks, status = :status, arrival_date = :arrival_date,
extensions = :extensions, medical_start_date = :medical_start_date, medical_end_date = :medical_end_date,
medical_days = :medical_days, medical_reason = :medical_reason, cl_days_availed = :cl_days_availed,
cl_days_cancelled = :cl_days_cancelled, medical_history = :medical_history,
medical_approval_status = :medical_approval_status, medical_approved_by = :medical_approved_by,
medical_approved_at = :medical_approved_at, decision_reason = :decision_reason, decided_by = :decided_by,
decided_at = :decided_at, returned_at = :returned_at, version = version + 1, updated_at = :updated_at
WHERE id = :id`
	if _, err := t.tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	leave.Version++
	return nil
}

func (t *sqlLeaveTx) LockBalance(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	return selectBalance(ctx, t.tx, employeeID, year, true)
}

func (t *sqlLeaveTx) InsertBalance(ctx context.Context, balance *models.LeaveBalance) error {
	return insertBalance(ctx, t.tx, balance)
}

func (t *sqlLeaveTx) UpdateBalance(ctx context.Context, balance *models.LeaveBalance) error {
	return updateBalance(ctx, t.tx, balance)
}
