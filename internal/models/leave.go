package models

import "time"

// LeaveType enumerates the kinds of leave an employee may apply for.
type LeaveType string

const (
	LeaveTypeCasual     LeaveType = "CASUAL"
	LeaveTypePermission LeaveType = "PERMISSION"
	LeaveTypeRestricted LeaveType = "RESTRICTED"
	LeaveTypeEarned     LeaveType = "EARNED"
	LeaveTypeMedical    LeaveType = "MEDICAL"
	LeaveTypeMaternity  LeaveType = "MATERNITY"
	LeaveTypeChildCare  LeaveType = "CHILD_CARE"
)

// LeaveTypes lists every accepted leave type.
var LeaveTypes = []LeaveType{
	LeaveTypeCasual,
	LeaveTypePermission,
	LeaveTypeRestricted,
	LeaveTypeEarned,
	LeaveTypeMedical,
	LeaveTypeMaternity,
	LeaveTypeChildCare,
}

// Valid reports a known leave type.
func (t LeaveType) Valid() bool {
	for _, lt := range LeaveTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// FemaleOnly reports leave types restricted to female employees.
func (t LeaveType) FemaleOnly() bool {
	return t == LeaveTypeMaternity || t == LeaveTypeChildCare
}

// Category maps a leave type onto the ledger it draws from.
func (t LeaveType) Category() LeaveCategory {
	switch t {
	case LeaveTypeCasual:
		return CategoryCasual
	case LeaveTypePermission:
		return CategoryPermissions
	case LeaveTypeRestricted:
		return CategoryRestricted
	case LeaveTypeEarned:
		return CategoryEarned
	case LeaveTypeMedical:
		return CategoryMedical
	case LeaveTypeMaternity:
		return CategoryMaternity
	case LeaveTypeChildCare:
		return CategoryChildCare
	}
	return ""
}

// LeaveStatus is the lifecycle state of an application.
type LeaveStatus string

const (
	LeaveStatusPendingApproval LeaveStatus = "PENDING_APPROVAL"
	LeaveStatusOnLeave         LeaveStatus = "ON_LEAVE"
	LeaveStatusReturned        LeaveStatus = "RETURNED"
	LeaveStatusCancelled       LeaveStatus = "CANCELLED"
	LeaveStatusRejected        LeaveStatus = "REJECTED"
)

// MedicalApprovalStatus tracks the medical-rest sub-state.
type MedicalApprovalStatus string

const (
	MedicalApprovalNone      MedicalApprovalStatus = "NONE"
	MedicalApprovalPending   MedicalApprovalStatus = "PENDING"
	MedicalApprovedAsEL      MedicalApprovalStatus = "APPROVED_AS_EL"
	MedicalApprovedAsMedical MedicalApprovalStatus = "APPROVED_AS_MEDICAL"
	MedicalApprovalRejected  MedicalApprovalStatus = "REJECTED"
)

const (
	MedicalHistoryActionAdd    = "ADDED"
	MedicalHistoryActionExtend = "EXTENDED"
)

// LeaveExtension is one append-only extension record.
type LeaveExtension struct {
	Days       int       `json:"days"`
	Reason     string    `json:"reason"`
	ExtendedBy string    `json:"extendedBy"`
	ExtendedAt time.Time `json:"extendedAt"`
}

// MedicalRest is the medical sub-period attached to a casual leave.
type MedicalRest struct {
	StartDate       Date   `json:"startDate"`
	EndDate         Date   `json:"endDate"`
	Days            int    `json:"days"`
	Reason          string `json:"reason"`
	CLDaysAvailed   int    `json:"clDaysAvailed"`
	CLDaysCancelled int    `json:"clDaysCancelled"`
}

// MedicalHistoryEntry records each add or extend of medical rest.
type MedicalHistoryEntry struct {
	Action  string    `json:"action"`
	Days    int       `json:"days"`
	Reason  string    `json:"reason"`
	EndDate Date      `json:"endDate"`
	ActedBy string    `json:"actedBy"`
	ActedAt time.Time `json:"actedAt"`
}

// LeaveApplication is one leave event.
type LeaveApplication struct {
	ID                    string                `json:"id"`
	EmployeeID            string                `json:"employeeId"`
	EmployeeName          string                `json:"employeeName,omitempty"`
	UnitID                *string               `json:"unitId,omitempty"`
	LeaveType             LeaveType             `json:"leaveType"`
	StartDate             Date                  `json:"startDate"`
	EndDate               Date                  `json:"endDate"`
	TotalDays             int                   `json:"totalDays"`
	WorkingDays           int                   `json:"workingDays"`
	PermissionDates       []Date                `json:"permissionDates"`
	PermissionsUsed       int                   `json:"permissionsUsed"`
	Remarks               string                `json:"remarks,omitempty"`
	Status                LeaveStatus           `json:"status"`
	ArrivalDate           Date                  `json:"arrivalDate"`
	Extensions            []LeaveExtension      `json:"extensions"`
	MedicalRest           *MedicalRest          `json:"medicalRest,omitempty"`
	MedicalHistory        []MedicalHistoryEntry `json:"medicalHistory"`
	MedicalApprovalStatus MedicalApprovalStatus `json:"medicalApprovalStatus"`
	MedicalApprovedBy     *string               `json:"medicalApprovedBy,omitempty"`
	MedicalApprovedAt     *time.Time            `json:"medicalApprovedAt,omitempty"`
	DecisionReason        string                `json:"decisionReason,omitempty"`
	DecidedBy             *string               `json:"decidedBy,omitempty"`
	DecidedAt             *time.Time            `json:"decidedAt,omitempty"`
	ReturnedAt            *time.Time            `json:"returnedAt,omitempty"`
	CreatedBy             string                `json:"createdBy"`
	Version               int                   `json:"version"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
}

// BalanceYear is the ledger year a leave draws from.
func (l *LeaveApplication) BalanceYear() int {
	return l.StartDate.Year()
}

// HasMedicalRest reports whether medical rest has been attached.
func (l *LeaveApplication) HasMedicalRest() bool {
	return l.MedicalRest != nil
}

// CoversDate reports an active leave that includes d.
func (l *LeaveApplication) CoversDate(d Date) bool {
	if l.Status != LeaveStatusOnLeave {
		return false
	}
	end := l.EndDate
	if l.MedicalRest != nil && l.MedicalRest.EndDate.After(end) {
		end = l.MedicalRest.EndDate
	}
	return d.Within(l.StartDate, end)
}

// RecomputeArrival sets the arrival date to the day after the last day away.
func (l *LeaveApplication) RecomputeArrival() {
	if l.MedicalRest != nil {
		l.ArrivalDate = l.MedicalRest.EndDate.AddDays(1)
		return
	}
	l.ArrivalDate = l.EndDate.AddDays(1)
}

// CasualDaysAfter counts the days of the leave after d that were charged to
// casual leave. Permission dates were charged to permissions and are skipped.
func (l *LeaveApplication) CasualDaysAfter(d Date) int {
	permission := make(map[string]struct{}, len(l.PermissionDates))
	for _, p := range l.PermissionDates {
		permission[p.String()] = struct{}{}
	}
	n := 0
	for _, day := range EachDay(d.AddDays(1), l.EndDate) {
		if _, ok := permission[day.String()]; !ok {
			n++
		}
	}
	return n
}

// LeaveDebit is the number of days one ledger category is charged.
type LeaveDebit struct {
	Category LeaveCategory `json:"category"`
	Days     int           `json:"days"`
}

// DebitPlan derives the ledger charges this leave currently holds. Medical rest
// conversions are booked separately at approval and are not part of the plan.
func (l *LeaveApplication) DebitPlan() []LeaveDebit {
	switch l.LeaveType {
	case LeaveTypeCasual:
		plan := []LeaveDebit{{Category: CategoryCasual, Days: l.WorkingDays}}
		if l.PermissionsUsed > 0 {
			plan = append(plan, LeaveDebit{Category: CategoryPermissions, Days: l.PermissionsUsed})
		}
		return plan
	case LeaveTypePermission:
		return []LeaveDebit{{Category: CategoryPermissions, Days: l.TotalDays}}
	default:
		return []LeaveDebit{{Category: l.LeaveType.Category(), Days: l.TotalDays}}
	}
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	EmployeeID string
	UnitID     string
	Status     LeaveStatus
	LeaveType  LeaveType
	From       *Date
	To         *Date
	Page       int
	PageSize   int
}

// PermissionDateCheck is the per-date verdict of a permission dry run.
type PermissionDateCheck struct {
	Date   Date   `json:"date"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
