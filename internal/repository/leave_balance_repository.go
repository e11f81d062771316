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

// LeaveBalanceRepository reads balances and lazily creates missing years.
// Every mutation of an existing balance goes through LeaveTx.
type LeaveBalanceRepository struct {
	db *sqlx.DB
}

// NewLeaveBalanceRepository constructs a LeaveBalanceRepository.
func NewLeaveBalanceRepository(db *sqlx.DB) *LeaveBalanceRepository {
	return &LeaveBalanceRepository{db: db}
}

type balanceRow struct {
	ID                   string    `db:"id"`
	EmployeeID           string    `db:"employee_id"`
	Year                 int       `db:"year"`
	CasualTotal          int       `db:"casual_total"`
	CasualUsed           int       `db:"casual_used"`
	CasualRemaining      int       `db:"casual_remaining"`
	PermissionsTotal     int       `db:"permissions_total"`
	PermissionsUsed      int       `db:"permissions_used"`
	PermissionsRemaining int       `db:"permissions_remaining"`
	RestrictedTotal      int       `db:"restricted_total"`
	RestrictedUsed       int       `db:"restricted_used"`
	RestrictedRemaining  int       `db:"restricted_remaining"`
	EarnedCarriedForward int       `db:"earned_carried_forward"`
	EarnedEarned         int       `db:"earned_earned"`
	EarnedUsed           int       `db:"earned_used"`
	EarnedRemaining      int       `db:"earned_remaining"`
	MedicalUsed          int       `db:"medical_used"`
	MaternityTotal       int       `db:"maternity_total"`
	MaternityUsed        int       `db:"maternity_used"`
	MaternityRemaining   int       `db:"maternity_remaining"`
	ChildCareTotal       int       `db:"child_care_total"`
	ChildCareUsed        int       `db:"child_care_used"`
	ChildCareRemaining   int       `db:"child_care_remaining"`
	Version              int       `db:"version"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

const balanceColumns = `id, employee_id, year,
casual_total, casual_used, casual_remaining,
permissions_total, permissions_used, permissions_remaining,
restricted_total, restricted_used, restricted_remaining,
earned_carried_forward, earned_earned, earned_used, earned_remaining,
medical_used,
maternity_total, maternity_used, maternity_remaining,
child_care_total, child_care_used, child_care_remaining,
version, created_at, updated_at`

func (r balanceRow) toModel() *models.LeaveBalance {
	return &models.LeaveBalance{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		Year:            r.Year,
		CasualLeave:     models.LeaveLedger{Total: r.CasualTotal, Used: r.CasualUsed, Remaining: r.CasualRemaining},
		Permissions:     models.LeaveLedger{Total: r.PermissionsTotal, Used: r.PermissionsUsed, Remaining: r.PermissionsRemaining},
		RestrictedLeave: models.LeaveLedger{Total: r.RestrictedTotal, Used: r.RestrictedUsed, Remaining: r.RestrictedRemaining},
		EarnedLeave: models.EarnedLedger{
			CarriedForward: r.EarnedCarriedForward,
			Earned:         r.EarnedEarned,
			Used:           r.EarnedUsed,
			Remaining:      r.EarnedRemaining,
		},
		MedicalLeave:   models.MedicalLedger{Used: r.MedicalUsed},
		MaternityLeave: models.LeaveLedger{Total: r.MaternityTotal, Used: r.MaternityUsed, Remaining: r.MaternityRemaining},
		ChildCareLeave: models.LeaveLedger{Total: r.ChildCareTotal, Used: r.ChildCareUsed, Remaining: r.ChildCareRemaining},
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func balanceRowFrom(b *models.LeaveBalance) balanceRow {
	return balanceRow{
		ID:                   b.ID,
		EmployeeID:           b.EmployeeID,
		Year:                 b.Year,
		CasualTotal:          b.CasualLeave.Total,
		CasualUsed:           b.CasualLeave.Used,
		CasualRemaining:      b.CasualLeave.Remaining,
		PermissionsTotal:     b.Permissions.Total,
		PermissionsUsed:      b.Permissions.Used,
		PermissionsRemaining: b.Permissions.Remaining,
		RestrictedTotal:      b.RestrictedLeave.Total,
		RestrictedUsed:       b.RestrictedLeave.Used,
		RestrictedRemaining:  b.RestrictedLeave.Remaining,
		EarnedCarriedForward: b.EarnedLeave.CarriedForward,
		EarnedEarned:         b.EarnedLeave.Earned,
		EarnedUsed:           b.EarnedLeave.Used,
		EarnedRemaining:      b.EarnedLeave.Remaining,
		MedicalUsed:          b.MedicalLeave.Used,
		MaternityTotal:       b.MaternityLeave.Total,
		MaternityUsed:        b.MaternityLeave.Used,
		MaternityRemaining:   b.MaternityLeave.Remaining,
		ChildCareTotal:       b.ChildCareLeave.Total,
		ChildCareUsed:        b.ChildCareLeave.Used,
		ChildCareRemaining:   b.ChildCareLeave.Remaining,
		Version:              b.Version,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
}

func selectBalance(ctx context.Context, q sqlx.QueryerContext, employeeID string, year int, forUpdate bool) (*models.LeaveBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE employee_id = $1 AND year = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row balanceRow
	if err := sqlx.GetContext(ctx, q, &row, query, employeeID, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select leave balance: %w", err)
	}
	return row.toModel(), nil
}

// insertBalance creates the row unless another writer already did.
func insertBalance(ctx context.Context, e sqlx.ExtContext, b *models.LeaveBalance) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt, b.Version = now, now, 1
	const query = `INSERT INTO leave_balances (` + balanceColumns + `) VALUES (
:id, :employee_id, :year,
:casual_total, :casual_used, :casual_remaining,
:permissions_total, :permissions_used, :permissions_remaining,
:restricted_total, :restricted_used, :restricted_remaining,
:earned_carried_forward, :earned_earned, :earned_used, :earned_remaining,
:medical_used,
:maternity_total, :maternity_used, :maternity_remaining,
:child_care_total, :child_care_used, :child_care_remaining,
:version, :created_at, :updated_at)
ON CONFLICT (employee_id, year) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, e, query, balanceRowFrom(b)); err != nil {
		return fmt.Errorf("insert leave balance: %w", err)
	}
	return nil
}

func updateBalance(ctx context.Context, e sqlx.ExtContext, b *models.LeaveBalance) error {
	b.UpdatedAt = time.Now().UTC()
	const query = `UPDATE leave_balances SET
casual_total = :casual_total, casual_used = :casual_used, casual_remaining = :casual_remaining,
permissions_total = :permissions_total, permissions_used = :permissions_used, permissions_remaining = :permissions_remaining,
restricted_total = :restricted_total, restricted_used = :restricted_used, restricted_remaining = :restricted_remaining,
earned_carried_forward = :earned_carried_forward, earned_earned = :earned_earned, earned_used = :earned_used, earned_remaining = :earned_remaining,
medical_used = :medical_used,
maternity_total = :maternity_total, maternity_used = :maternity_used, maternity_remaining = :maternity_remaining,
child_care_total = :child_care_total, child_care_used = :child_care_used, child_care_remaining = :child_care_remaining,
version = version + 1, updated_at = :updated_at
WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, e, query, balanceRowFrom(b)); err != nil {
		return fmt.Errorf("update leave balance: %w", err)
	}
	b.Version++
	return nil
}

// FindByEmployeeYear returns the stored balance or sql.ErrNoRows.
func (r *LeaveBalanceRepository) FindByEmployeeYear(ctx context.Context, employeeID string, year int) (*models.LeaveBalance, error) {
	return selectBalance(ctx, r.db, employeeID, year, false)
}

// InsertIfAbsent creates a balance row; a concurrent insert of the same
// {employee, year} is silently absorbed by the unique constraint.
func (r *LeaveBalanceRepository) InsertIfAbsent(ctx context.Context, b *models.LeaveBalance) error {
	return insertBalance(ctx, r.db, b)
}
