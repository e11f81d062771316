package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateLeaveValidation(t *testing.T) {
	v := NewValidator()

	valid := CreateLeaveRequest{
		EmployeeID:      "emp-1",
		LeaveType:       "CASUAL",
		StartDate:       "2026-01-05",
		EndDate:         "2026-01-09",
		PermissionDates: []string{"2026-01-04"},
	}
	assert.NoError(t, v.Struct(valid))

	bad := valid
	bad.LeaveType = "SABBATICAL"
	assert.Error(t, v.Struct(bad))

	bad = valid
	bad.PermissionDates = []string{"04/01/2026"}
	assert.Error(t, v.Struct(bad))
}

func TestGateDutySetupValidation(t *testing.T) {
	v := NewValidator()
	emp := "emp-1"

	req := GateDutySetupRequest{
		Year:   2026,
		Duties: []GateDutySetupDay{{Date: 1, Slots: map[string]*string{"main_gate_morning": &emp, "school_gate_evening": nil}}},
	}
	assert.NoError(t, v.Struct(req))

	req.Duties[0].Slots["side_gate"] = &emp
	assert.Error(t, v.Struct(req))

	req.Duties = []GateDutySetupDay{{Date: 32, Slots: map[string]*string{}}}
	assert.Error(t, v.Struct(req))
}

func TestLeaveDecisionRequiresReasonOnReject(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Struct(LeaveDecisionRequest{Decision: "APPROVED"}))
	assert.Error(t, v.Struct(LeaveDecisionRequest{Decision: "REJECTED"}))
	assert.NoError(t, v.Struct(LeaveDecisionRequest{Decision: "REJECTED", Reason: "unit short-staffed"}))
}
