package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

var leaveRowColumns = []string{
	"id", "employee_id", "employee_name", "unit_id", "leave_type", "start_date", "end_date",
	"total_days", "working_days", "permission_dates", "permissions_used", "remarks", "status", "arrival_date", "extensions",
	"medical_start_date", "medical_end_date", "medical_days", "medical_reason", "cl_days_availed", "cl_days_cancelled",
	"medical_history", "medical_approval_status", "medical_approved_by", "medical_approved_at",
	"decision_reason", "decided_by", "decided_at", "returned_at", "created_by", "version", "created_at", "updated_at",
}

func TestLeaveFindByIDDecodesColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	now := time.Now()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(leaveRowColumns).AddRow(
		"leave-1", "emp-1", "Havildar Rao", "unit-a", "CASUAL", start, end,
		5, 4, "{2026-03-07}", 1, "family", "ON_LEAVE", end.AddDate(0, 0, 1), []byte(`[{"days":2,"reason":"travel","extendedBy":"u1","extendedAt":"2026-03-05T10:00:00Z"}]`),
		start.AddDate(0, 0, 4), start.AddDate(0, 0, 9), 6, "fever", 4, 6,
		[]byte(`[]`), "PENDING", nil, nil,
		"", nil, nil, nil, "u1", 3, now, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.id = $1")).WithArgs("leave-1").WillReturnRows(rows)

	leave, err := repo.FindByID(context.Background(), "leave-1")
	require.NoError(t, err)
	assert.Equal(t, "Havildar Rao", leave.EmployeeName)
	assert.Equal(t, models.LeaveTypeCasual, leave.LeaveType)
	require.Len(t, leave.PermissionDates, 1)
	assert.Equal(t, "2026-03-07", leave.PermissionDates[0].String())
	require.Len(t, leave.Extensions, 1)
	assert.Equal(t, 2, leave.Extensions[0].Days)
	require.NotNil(t, leave.MedicalRest)
	assert.Equal(t, 6, leave.MedicalRest.CLDaysCancelled)
	assert.Equal(t, "2026-03-11", leave.MedicalRest.EndDate.String())
	assert.Empty(t, leave.MedicalHistory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveFindActiveCoveringNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	day := models.MustParseDate("2026-03-04")
	mock.ExpectQuery("l.status = \\$2").
		WithArgs("emp-1", models.LeaveStatusOnLeave, day.Time).
		WillReturnRows(sqlmock.NewRows(leaveRowColumns))

	_, err := repo.FindActiveCovering(context.Background(), "emp-1", day)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLeaveWithinTxCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	balanceCols := []string{"id", "employee_id", "year",
		"casual_total", "casual_used", "casual_remaining",
		"permissions_total", "permissions_used", "permissions_remaining",
		"restricted_total", "restricted_used", "restricted_remaining",
		"earned_carried_forward", "earned_earned", "earned_used", "earned_remaining",
		"medical_used",
		"maternity_total", "maternity_used", "maternity_remaining",
		"child_care_total", "child_care_used", "child_care_remaining",
		"version", "created_at", "updated_at"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM leave_balances WHERE employee_id = \\$1 AND year = \\$2 FOR UPDATE").
		WithArgs("emp-1", 2026).
		WillReturnRows(sqlmock.NewRows(balanceCols).AddRow("bal-1", "emp-1", 2026,
			30, 0, 30, 5, 0, 5, 2, 0, 2, 0, 0, 0, 0, 0, 180, 0, 180, 730, 0, 730, 1, now, now))
	mock.ExpectExec("UPDATE leave_balances SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO leave_applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx LeaveTx) error {
		balance, err := tx.LockBalance(context.Background(), "emp-1", 2026)
		if err != nil {
			return err
		}
		if err := balance.Debit(models.CategoryCasual, 4); err != nil {
			return err
		}
		if err := tx.UpdateBalance(context.Background(), balance); err != nil {
			return err
		}
		leave := &models.LeaveApplication{
			EmployeeID: "emp-1",
			LeaveType:  models.LeaveTypeCasual,
			StartDate:  models.MustParseDate("2026-03-02"),
			EndDate:    models.MustParseDate("2026-03-05"),
			TotalDays:  4,
			Status:     models.LeaveStatusOnLeave,
		}
		return tx.InsertLeave(context.Background(), leave)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveWithinTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.WithinTx(context.Background(), func(tx LeaveTx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveBalanceFindMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectQuery("FROM leave_balances WHERE").WithArgs("emp-9", 2026).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmployeeYear(context.Background(), "emp-9", 2026)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLeaveBalanceInsertIfAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveBalanceRepository(db)

	mock.ExpectExec("ON CONFLICT \\(employee_id, year\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))

	balance := models.NewLeaveBalance("emp-1", 2026, models.DefaultBalanceDefaults)
	require.NoError(t, repo.InsertIfAbsent(context.Background(), balance))
	assert.NotEmpty(t, balance.ID)
	assert.Equal(t, 1, balance.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
