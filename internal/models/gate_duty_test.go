package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetSlotDetails(t *testing.T) {
	for _, slot := range GateSlots {
		details, ok := GetSlotDetails(slot)
		require.True(t, ok, slot)
		assert.NotEmpty(t, details.Gate)
		assert.NotEmpty(t, details.TimeWindow)
		assert.NotEmpty(t, details.Label)
	}
	_, ok := GetSlotDetails("back_gate_night")
	assert.False(t, ok)
}

func TestAssembleRosterReplacementPrecedence(t *testing.T) {
	duties := []GateDuty{
		{Date: 5, Year: 2026, MainGateMorning: strPtr("perm-a"), SchoolGateEvening: strPtr("perm-b")},
	}
	replacements := []GateDutyReplacement{
		{Date: 5, Month: 3, Year: 2026, Slot: SlotMainGateMorning, OriginalEmployeeID: "perm-a", ReplacementEmployeeID: "rep-x"},
	}

	march := AssembleRoster(2026, 3, duties, replacements)
	require.Len(t, march.Days, 1)
	require.Len(t, march.Days[0].Slots, 2)
	assert.Equal(t, "rep-x", march.Days[0].Slots[0].EffectiveEmployeeID)
	assert.True(t, march.Days[0].Slots[0].HasReplacement)
	assert.Equal(t, "perm-b", march.Days[0].Slots[1].EffectiveEmployeeID)
	assert.Equal(t, "2026-03-05", march.Days[0].Date.String())

	april := AssembleRoster(2026, 4, duties, replacements)
	require.Len(t, april.Days, 1)
	assert.Equal(t, "perm-a", april.Days[0].Slots[0].EffectiveEmployeeID)
	assert.False(t, april.Days[0].Slots[0].HasReplacement)
}

func TestAssembleRosterSkipsMissingDates(t *testing.T) {
	duties := []GateDuty{
		{Date: 31, Year: 2026, MainGateMorning: strPtr("a")},
		{Date: 2, Year: 2026, MainGateEvening: strPtr("b")},
		{Date: 1, Year: 2026, MainGateEvening: strPtr("c")},
	}

	roster := AssembleRoster(2026, 4, duties, nil)
	require.Len(t, roster.Days, 2)
	assert.Equal(t, 1, roster.Days[0].Date.Day())
	assert.Equal(t, 2, roster.Days[1].Date.Day())
	assert.ElementsMatch(t, []string{"c", "b"}, roster.EmployeeIDs())
}

func TestDutiesForEmployee(t *testing.T) {
	duty := &GateDuty{Date: 10, Year: 2026, MainGateMorning: strPtr("emp-1"), MainGateEvening: strPtr("emp-1"), SchoolGateMorning: strPtr("emp-2")}
	replacements := []GateDutyReplacement{
		{Slot: SlotMainGateEvening, OriginalEmployeeID: "emp-1", ReplacementEmployeeID: "emp-3"},
		{Slot: SlotSchoolGateMorning, OriginalEmployeeID: "emp-2", ReplacementEmployeeID: "emp-1", Reason: "swap"},
	}

	duties := DutiesForEmployee("emp-1", duty, replacements)
	require.Len(t, duties, 2)
	assert.Equal(t, SlotMainGateMorning, duties[0].Slot)
	assert.Equal(t, DutyRolePermanent, duties[0].Role)
	assert.Equal(t, SlotSchoolGateMorning, duties[1].Slot)
	assert.Equal(t, DutyRoleReplacement, duties[1].Role)
	assert.Equal(t, "emp-2", duties[1].ReplacingEmployeeID)

	assert.Empty(t, DutiesForEmployee("emp-2", duty, replacements))
	assert.Len(t, DutiesForEmployee("emp-3", nil, replacements), 1)
}

func TestOutDutyCoversDate(t *testing.T) {
	ret := MustParseDate("2026-02-10")
	od := &OutDuty{Status: OutDutyOngoing, StartDate: MustParseDate("2026-02-01"), ExpectedReturnDate: &ret}

	assert.False(t, od.CoversDate(MustParseDate("2026-01-31")))
	assert.True(t, od.CoversDate(MustParseDate("2026-02-01")))
	assert.True(t, od.CoversDate(MustParseDate("2026-02-10")))
	assert.False(t, od.CoversDate(MustParseDate("2026-02-11")))

	od.ExpectedReturnDate = nil
	assert.True(t, od.CoversDate(MustParseDate("2027-01-01")))

	od.Status = OutDutyReturned
	assert.False(t, od.CoversDate(MustParseDate("2026-02-05")))
}
