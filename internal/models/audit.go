package models

import "time"

// Audit actions recorded for state changes.
const (
	AuditActionLogin               = "LOGIN"
	AuditActionLeaveCreate         = "LEAVE_CREATE"
	AuditActionLeaveRequest        = "LEAVE_REQUEST"
	AuditActionLeaveEdit           = "LEAVE_EDIT"
	AuditActionLeaveExtend         = "LEAVE_EXTEND"
	AuditActionLeaveAddMedical     = "LEAVE_ADD_MEDICAL"
	AuditActionLeaveExtendMedical  = "LEAVE_EXTEND_MEDICAL"
	AuditActionLeaveReturn         = "LEAVE_RETURN"
	AuditActionLeaveCancel         = "LEAVE_CANCEL"
	AuditActionLeaveApproveMedical = "LEAVE_APPROVE_MEDICAL"
	AuditActionLeaveDecision       = "LEAVE_DECISION"
	AuditActionBalanceAllot        = "BALANCE_ALLOT"
	AuditActionGateDutySetup       = "GATE_DUTY_SETUP"
	AuditActionGateDutySlot        = "GATE_DUTY_SLOT"
	AuditActionReplacementUpsert   = "GATE_DUTY_REPLACEMENT_UPSERT"
	AuditActionReplacementDelete   = "GATE_DUTY_REPLACEMENT_DELETE"
	AuditActionOutDutyCreate       = "OUT_DUTY_CREATE"
	AuditActionOutDutyReturn       = "OUT_DUTY_RETURN"
	AuditActionOutDutyCancel       = "OUT_DUTY_CANCEL"
	AuditActionHolidayCreate       = "HOLIDAY_CREATE"
	AuditActionHolidayDeactivate   = "HOLIDAY_DEACTIVATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
