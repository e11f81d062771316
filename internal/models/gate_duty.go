package models

import (
	"sort"
	"time"
)

// GateSlot identifies one of the four daily gate-duty slots.
type GateSlot string

const (
	SlotMainGateMorning   GateSlot = "main_gate_morning"
	SlotMainGateEvening   GateSlot = "main_gate_evening"
	SlotSchoolGateMorning GateSlot = "school_gate_morning"
	SlotSchoolGateEvening GateSlot = "school_gate_evening"
)

// GateSlots lists the slots in display order.
var GateSlots = []GateSlot{SlotMainGateMorning, SlotMainGateEvening, SlotSchoolGateMorning, SlotSchoolGateEvening}

// SlotDetails describes where and when a slot is manned.
type SlotDetails struct {
	Gate       string `json:"gate"`
	TimeWindow string `json:"timeWindow"`
	Label      string `json:"label"`
}

var slotDetails = map[GateSlot]SlotDetails{
	SlotMainGateMorning:   {Gate: "Main Gate", TimeWindow: "0600-1400", Label: "Main Gate (Morning)"},
	SlotMainGateEvening:   {Gate: "Main Gate", TimeWindow: "1400-2200", Label: "Main Gate (Evening)"},
	SlotSchoolGateMorning: {Gate: "School Gate", TimeWindow: "0700-1300", Label: "School Gate (Morning)"},
	SlotSchoolGateEvening: {Gate: "School Gate", TimeWindow: "1300-1900", Label: "School Gate (Evening)"},
}

// GetSlotDetails returns the static description of slot.
func GetSlotDetails(slot GateSlot) (SlotDetails, bool) {
	d, ok := slotDetails[slot]
	return d, ok
}

// Valid reports a known slot key.
func (s GateSlot) Valid() bool {
	_, ok := slotDetails[s]
	return ok
}

// GateDuty holds the permanent assignees for one recurring date of a year.
type GateDuty struct {
	ID                string    `db:"id" json:"id"`
	Date              int       `db:"date" json:"date"`
	Year              int       `db:"year" json:"year"`
	MainGateMorning   *string   `db:"main_gate_morning" json:"main_gate_morning"`
	MainGateEvening   *string   `db:"main_gate_evening" json:"main_gate_evening"`
	SchoolGateMorning *string   `db:"school_gate_morning" json:"school_gate_morning"`
	SchoolGateEvening *string   `db:"school_gate_evening" json:"school_gate_evening"`
	UpdatedBy         *string   `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

func (g *GateDuty) field(slot GateSlot) **string {
	switch slot {
	case SlotMainGateMorning:
		return &g.MainGateMorning
	case SlotMainGateEvening:
		return &g.MainGateEvening
	case SlotSchoolGateMorning:
		return &g.SchoolGateMorning
	case SlotSchoolGateEvening:
		return &g.SchoolGateEvening
	}
	return nil
}

// Assignee returns the permanent employee of slot, or "" when unassigned.
func (g *GateDuty) Assignee(slot GateSlot) string {
	f := g.field(slot)
	if f == nil || *f == nil {
		return ""
	}
	return **f
}

// SetAssignee binds slot to employeeID; an empty id clears the slot.
func (g *GateDuty) SetAssignee(slot GateSlot, employeeID string) bool {
	f := g.field(slot)
	if f == nil {
		return false
	}
	if employeeID == "" {
		*f = nil
		return true
	}
	id := employeeID
	*f = &id
	return true
}

// GateDutyReplacement overrides one slot for one month-instance of a recurring date.
type GateDutyReplacement struct {
	ID                    string    `db:"id" json:"id"`
	Date                  int       `db:"date" json:"date"`
	Month                 int       `db:"month" json:"month"`
	Year                  int       `db:"year" json:"year"`
	Slot                  GateSlot  `db:"slot" json:"slot"`
	OriginalEmployeeID    string    `db:"original_employee_id" json:"originalEmployeeId"`
	ReplacementEmployeeID string    `db:"replacement_employee_id" json:"replacementEmployeeId"`
	Reason                string    `db:"reason" json:"reason"`
	CreatedBy             string    `db:"created_by" json:"createdBy"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// ReplacementKey addresses a replacement by its natural key.
type ReplacementKey struct {
	Date  int
	Month int
	Year  int
	Slot  GateSlot
}

// Key returns the natural key of r.
func (r GateDutyReplacement) Key() ReplacementKey {
	return ReplacementKey{Date: r.Date, Month: r.Month, Year: r.Year, Slot: r.Slot}
}

// RosterSlot is one resolved slot of the effective roster.
type RosterSlot struct {
	Slot                  GateSlot             `json:"slot"`
	Details               SlotDetails          `json:"details"`
	PermanentEmployeeID   string               `json:"permanentEmployeeId"`
	PermanentEmployeeName string               `json:"permanentEmployeeName,omitempty"`
	EffectiveEmployeeID   string               `json:"effectiveEmployeeId"`
	EffectiveEmployeeName string               `json:"effectiveEmployeeName,omitempty"`
	HasReplacement        bool                 `json:"hasReplacement"`
	Replacement           *GateDutyReplacement `json:"replacement,omitempty"`
}

// RosterDay is the resolved roster for one calendar day.
type RosterDay struct {
	Date    Date         `json:"date"`
	Weekday string       `json:"weekday"`
	Slots   []RosterSlot `json:"slots"`
}

// MonthRoster is the effective gate-duty roster of one month.
type MonthRoster struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Days  []RosterDay `json:"days"`
	// Cached is set when the roster was served from the cache.
	Cached bool `json:"-"`
}

// AssembleRoster merges permanent assignments with the month's replacements.
// Recurring dates that do not exist in the month (e.g. 31 in April) are skipped.
func AssembleRoster(year, month int, duties []GateDuty, replacements []GateDutyReplacement) MonthRoster {
	byKey := make(map[ReplacementKey]GateDutyReplacement, len(replacements))
	for _, r := range replacements {
		if r.Month == month && r.Year == year {
			byKey[r.Key()] = r
		}
	}

	sorted := append([]GateDuty(nil), duties...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	roster := MonthRoster{Year: year, Month: month, Days: make([]RosterDay, 0, len(sorted))}
	for _, duty := range sorted {
		if duty.Year != year || !ValidDayOfMonth(year, month, duty.Date) {
			continue
		}
		day := NewDate(year, time.Month(month), duty.Date)
		rd := RosterDay{Date: day, Weekday: day.Weekday().String(), Slots: make([]RosterSlot, 0, len(GateSlots))}
		for _, slot := range GateSlots {
			permanent := duty.Assignee(slot)
			if permanent == "" {
				continue
			}
			details, _ := GetSlotDetails(slot)
			rs := RosterSlot{Slot: slot, Details: details, PermanentEmployeeID: permanent, EffectiveEmployeeID: permanent}
			if r, ok := byKey[ReplacementKey{Date: duty.Date, Month: month, Year: year, Slot: slot}]; ok {
				rep := r
				rs.EffectiveEmployeeID = r.ReplacementEmployeeID
				rs.HasReplacement = true
				rs.Replacement = &rep
			}
			rd.Slots = append(rd.Slots, rs)
		}
		roster.Days = append(roster.Days, rd)
	}
	return roster
}

// EmployeeIDs returns every employee the roster refers to.
func (m MonthRoster) EmployeeIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, d := range m.Days {
		for _, s := range d.Slots {
			for _, id := range []string{s.PermanentEmployeeID, s.EffectiveEmployeeID} {
				if _, ok := seen[id]; !ok && id != "" {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// ApplyNames fills employee display names from names.
func (m *MonthRoster) ApplyNames(names map[string]string) {
	for i := range m.Days {
		for j := range m.Days[i].Slots {
			s := &m.Days[i].Slots[j]
			s.PermanentEmployeeName = names[s.PermanentEmployeeID]
			s.EffectiveEmployeeName = names[s.EffectiveEmployeeID]
		}
	}
}

// DutyRole says how an employee came to hold a slot.
type DutyRole string

const (
	DutyRolePermanent   DutyRole = "PERMANENT"
	DutyRoleReplacement DutyRole = "REPLACEMENT"
)

// EmployeeDuty is a slot an employee must man on a given day.
type EmployeeDuty struct {
	Slot                GateSlot    `json:"slot"`
	Details             SlotDetails `json:"details"`
	Role                DutyRole    `json:"role"`
	ReplacingEmployeeID string      `json:"replacingEmployeeId,omitempty"`
	Reason              string      `json:"reason,omitempty"`
}

// DutiesForEmployee resolves employeeID's obligations on one day. duty may be
// nil when no roster exists for the date.
func DutiesForEmployee(employeeID string, duty *GateDuty, replacements []GateDutyReplacement) []EmployeeDuty {
	replaced := make(map[GateSlot]GateDutyReplacement, len(replacements))
	for _, r := range replacements {
		replaced[r.Slot] = r
	}

	duties := make([]EmployeeDuty, 0)
	for _, slot := range GateSlots {
		details, _ := GetSlotDetails(slot)
		r, hasReplacement := replaced[slot]
		switch {
		case hasReplacement && r.ReplacementEmployeeID == employeeID:
			duties = append(duties, EmployeeDuty{Slot: slot, Details: details, Role: DutyRoleReplacement, ReplacingEmployeeID: r.OriginalEmployeeID, Reason: r.Reason})
		case !hasReplacement && duty != nil && duty.Assignee(slot) == employeeID:
			duties = append(duties, EmployeeDuty{Slot: slot, Details: details, Role: DutyRolePermanent})
		}
	}
	return duties
}

// ValidDayOfMonth reports whether day exists in month of year.
func ValidDayOfMonth(year, month, day int) bool {
	if day < 1 || month < 1 || month > 12 {
		return false
	}
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}
