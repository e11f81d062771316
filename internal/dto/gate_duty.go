package dto

import "github.com/noah-isme/sigcom-backoffice-api/internal/models"

// GateDutySetupDay is the permanent roster of one recurring date.
// A nil slot value clears the slot.
type GateDutySetupDay struct {
	Date  int                `json:"date" validate:"required,min=1,max=31"`
	Slots map[string]*string `json:"slots" validate:"required,dive,keys,gateslot,endkeys"`
}

// GateDutySetupRequest bulk-upserts a year's roster.
type GateDutySetupRequest struct {
	Year   int                `json:"year" validate:"required,min=2000,max=2100"`
	Duties []GateDutySetupDay `json:"duties" validate:"required,min=1,max=31,dive"`
}

// UpdateSlotRequest sets or clears one slot of a roster day.
type UpdateSlotRequest struct {
	Slot       string  `json:"slot" validate:"required,gateslot"`
	EmployeeID *string `json:"employeeId"`
}

// ReplacementRequest overrides one slot for one month.
type ReplacementRequest struct {
	Date                  int    `json:"date" validate:"required,min=1,max=31"`
	Month                 int    `json:"month" validate:"required,min=1,max=12"`
	Year                  int    `json:"year" validate:"required,min=2000,max=2100"`
	Slot                  string `json:"slot" validate:"required,gateslot"`
	ReplacementEmployeeID string `json:"replacementEmployeeId" validate:"required"`
	Reason                string `json:"reason" validate:"required,max=500"`
	Force                 bool   `json:"force"`
}

// ReplacementWarning explains why a candidate may be unavailable.
type ReplacementWarning struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Leave   *models.LeaveApplication `json:"leave,omitempty"`
	OutDuty *models.OutDuty          `json:"outDuty,omitempty"`
}

// ReplacementResult reports what a replacement request did.
type ReplacementResult struct {
	Replacement *models.GateDutyReplacement `json:"replacement,omitempty"`
	Applied     bool                        `json:"applied"`
	Warning     *ReplacementWarning         `json:"warning,omitempty"`
}

// RosterExport is a rendered roster document.
type RosterExport struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ReplacementKeyQuery addresses one replacement from the query string.
type ReplacementKeyQuery struct {
	Date  int    `form:"date" validate:"required,min=1,max=31"`
	Month int    `form:"month" validate:"required,min=1,max=12"`
	Year  int    `form:"year" validate:"required,min=2000,max=2100"`
	Slot  string `form:"slot" validate:"required,gateslot"`
}

// RosterQuery selects the month of an effective roster.
type RosterQuery struct {
	Year   int    `form:"year" validate:"required,min=2000,max=2100"`
	Month  int    `form:"month" validate:"required,min=1,max=12"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
