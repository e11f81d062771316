package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaveBalanceDefaults(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)

	assert.Equal(t, LeaveLedger{Total: 30, Remaining: 30}, b.CasualLeave)
	assert.Equal(t, LeaveLedger{Total: 5, Remaining: 5}, b.Permissions)
	assert.Equal(t, LeaveLedger{Total: 2, Remaining: 2}, b.RestrictedLeave)
	assert.Equal(t, LeaveLedger{Total: 730, Remaining: 730}, b.ChildCareLeave)
	assert.Equal(t, LeaveLedger{Total: 180, Remaining: 180}, b.MaternityLeave)
	assert.Equal(t, EarnedLedger{}, b.EarnedLeave)
	assert.True(t, b.Conserved())
}

func TestDebitInsufficientLeavesLedgerUntouched(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, BalanceDefaults{Casual: 3})

	err := b.Debit(CategoryCasual, 5)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "Insufficient CL balance. Required: 5, Available: 3", err.Error())
	assert.Equal(t, 3, b.CasualLeave.Remaining)
	assert.Equal(t, 0, b.CasualLeave.Used)
}

func TestMedicalIsUnbounded(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)

	require.NoError(t, b.Debit(CategoryMedical, 400))
	assert.Equal(t, 400, b.MedicalLeave.Used)
	require.NoError(t, b.Credit(CategoryMedical, 100))
	assert.Equal(t, 300, b.MedicalLeave.Used)
}

func TestEarnedLeaveIsBounded(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)
	require.NoError(t, b.SetEarnedAllotment(4, 6))

	require.NoError(t, b.Debit(CategoryEarned, 7))
	assert.Equal(t, EarnedLedger{CarriedForward: 4, Earned: 6, Used: 7, Remaining: 3}, b.EarnedLeave)

	err := b.Debit(CategoryEarned, 4)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, CategoryEarned, insufficient.Category)
	assert.True(t, b.Conserved())
}

func TestCreditRejectsUnderflow(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)
	require.NoError(t, b.Debit(CategoryRestricted, 1))

	err := b.Credit(CategoryRestricted, 2)
	assert.ErrorIs(t, err, ErrLedgerUnderflow)
	assert.Equal(t, 1, b.RestrictedLeave.Used)
}

func TestSetAllotmentKeepsUsed(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)
	require.NoError(t, b.Debit(CategoryCasual, 12))

	require.NoError(t, b.SetAllotment(CategoryCasual, 20))
	assert.Equal(t, LeaveLedger{Total: 20, Used: 12, Remaining: 8}, b.CasualLeave)

	err := b.SetAllotment(CategoryCasual, 10)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 20, b.CasualLeave.Total)
}

func TestPlanRoundTripConservesBalance(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)
	leave := &LeaveApplication{LeaveType: LeaveTypeCasual, TotalDays: 5, WorkingDays: 4, PermissionsUsed: 1}

	require.NoError(t, b.ApplyPlan(leave.DebitPlan()))
	assert.Equal(t, 4, b.CasualLeave.Used)
	assert.Equal(t, 1, b.Permissions.Used)
	assert.True(t, b.Conserved())

	require.NoError(t, b.RevertPlan(leave.DebitPlan()))
	assert.Equal(t, NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults).CasualLeave, b.CasualLeave)
	assert.True(t, b.Conserved())
}

func TestUnknownCategory(t *testing.T) {
	b := NewLeaveBalance("emp-1", 2026, DefaultBalanceDefaults)
	assert.ErrorIs(t, b.Debit(LeaveCategory("bogus"), 1), ErrUnknownCategory)
	_, err := b.Remaining(CategoryMedical)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCasualDaysAfterSkipsPermissionDates(t *testing.T) {
	leave := &LeaveApplication{
		StartDate:       MustParseDate("2024-03-01"),
		EndDate:         MustParseDate("2024-03-10"),
		PermissionDates: []Date{MustParseDate("2024-03-09"), MustParseDate("2024-03-10")},
	}
	assert.Equal(t, 4, leave.CasualDaysAfter(MustParseDate("2024-03-04")))
	assert.Equal(t, 0, leave.CasualDaysAfter(MustParseDate("2024-03-08")))
	assert.Equal(t, 0, leave.CasualDaysAfter(MustParseDate("2024-03-10")))
}
