package dto

import "github.com/noah-isme/sigcom-backoffice-api/internal/models"

// CreateLeaveRequest defines the payload for recording a leave.
type CreateLeaveRequest struct {
	EmployeeID      string   `json:"employeeId" validate:"required"`
	LeaveType       string   `json:"leaveType" validate:"required,leavetype"`
	StartDate       string   `json:"startDate" validate:"required,isodate"`
	EndDate         string   `json:"endDate" validate:"required,isodate"`
	PermissionDates []string `json:"permissionDates" validate:"omitempty,max=31,dive,isodate"`
	Remarks         string   `json:"remarks" validate:"max=500"`
}

// EditLeaveRequest redefines the dates and type of an open leave.
type EditLeaveRequest struct {
	LeaveType       string   `json:"leaveType" validate:"required,leavetype"`
	StartDate       string   `json:"startDate" validate:"required,isodate"`
	EndDate         string   `json:"endDate" validate:"required,isodate"`
	PermissionDates []string `json:"permissionDates" validate:"omitempty,max=31,dive,isodate"`
	Remarks         string   `json:"remarks" validate:"max=500"`
}

// ExtendLeaveRequest adds days to the end of a casual leave.
type ExtendLeaveRequest struct {
	ExtendedDays int    `json:"extendedDays" validate:"required,min=1,max=365"`
	Reason       string `json:"reason" validate:"required,max=500"`
}

// AddMedicalRequest attaches medical rest starting tomorrow.
type AddMedicalRequest struct {
	MedicalDays int    `json:"medicalDays" validate:"required,min=1,max=365"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// ExtendMedicalRequest lengthens existing medical rest.
type ExtendMedicalRequest struct {
	AdditionalDays int    `json:"additionalDays" validate:"required,min=1,max=365"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

// Medical conversion choices.
const (
	ConvertToEL      = "EL"
	ConvertToMedical = "MEDICAL"
	ConvertToReject  = "REJECT"
)

// ApproveMedicalRequest settles the medical rest of a returned leave.
type ApproveMedicalRequest struct {
	ConvertTo string `json:"convertTo" validate:"required,oneof=EL MEDICAL REJECT"`
	Remarks   string `json:"remarks" validate:"max=500"`
}

// Leave decisions.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// LeaveDecisionRequest approves or rejects a pending leave.
type LeaveDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Reason   string `json:"reason" validate:"required_if=Decision REJECTED,max=500"`
}

// ValidatePermissionsRequest is a dry run of permission-date rules.
type ValidatePermissionsRequest struct {
	StartDate string   `json:"startDate" validate:"omitempty,isodate"`
	EndDate   string   `json:"endDate" validate:"omitempty,isodate,required_with=StartDate"`
	Dates     []string `json:"dates" validate:"required,min=1,max=31,dive,isodate"`
}

// ValidatePermissionsResponse lists per-date verdicts.
type ValidatePermissionsResponse struct {
	Valid bool                         `json:"valid"`
	Dates []models.PermissionDateCheck `json:"dates"`
}

// UpdateBalanceRequest sets the allotments of one employee-year. Nil fields are left unchanged.
type UpdateBalanceRequest struct {
	Year                 int  `json:"year" validate:"required,min=2000,max=2100"`
	CasualTotal          *int `json:"casualTotal" validate:"omitempty,min=0,max=365"`
	PermissionsTotal     *int `json:"permissionsTotal" validate:"omitempty,min=0,max=365"`
	RestrictedTotal      *int `json:"restrictedTotal" validate:"omitempty,min=0,max=365"`
	EarnedCarriedForward *int `json:"earnedCarriedForward" validate:"omitempty,min=0,max=1000"`
	EarnedEarned         *int `json:"earnedEarned" validate:"omitempty,min=0,max=365"`
	ChildCareTotal       *int `json:"childCareTotal" validate:"omitempty,min=0,max=1000"`
	MaternityTotal       *int `json:"maternityTotal" validate:"omitempty,min=0,max=365"`
}

// LeaveListQuery binds leave list filters from the query string.
type LeaveListQuery struct {
	EmployeeID string `form:"employeeId"`
	Status     string `form:"status" validate:"omitempty,oneof=PENDING_APPROVAL ON_LEAVE RETURNED CANCELLED REJECTED"`
	LeaveType  string `form:"type" validate:"omitempty,leavetype"`
	From       string `form:"from" validate:"omitempty,isodate"`
	To         string `form:"to" validate:"omitempty,isodate"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}
