package models

import "time"

// OutDutyStatus is the lifecycle state of an out-duty record.
type OutDutyStatus string

const (
	OutDutyOngoing   OutDutyStatus = "ONGOING"
	OutDutyReturned  OutDutyStatus = "RETURNED"
	OutDutyCancelled OutDutyStatus = "CANCELLED"
)

// OutDuty tracks an employee detached away from the establishment.
type OutDuty struct {
	ID                 string        `db:"id" json:"id"`
	EmployeeID         string        `db:"employee_id" json:"employeeId"`
	DutyType           string        `db:"duty_type" json:"dutyType"`
	Location           string        `db:"location" json:"location"`
	Purpose            string        `db:"purpose" json:"purpose,omitempty"`
	StartDate          Date          `db:"start_date" json:"startDate"`
	ExpectedReturnDate *Date         `db:"expected_return_date" json:"expectedReturnDate,omitempty"`
	ActualReturnDate   *Date         `db:"actual_return_date" json:"actualReturnDate,omitempty"`
	Status             OutDutyStatus `db:"status" json:"status"`
	Remarks            string        `db:"remarks" json:"remarks,omitempty"`
	CreatedBy          string        `db:"created_by" json:"createdBy"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`
}

// CoversDate reports an ongoing out-duty including d. An unset return date is open-ended.
func (o *OutDuty) CoversDate(d Date) bool {
	if o == nil || o.Status != OutDutyOngoing || d.Before(o.StartDate) {
		return false
	}
	return o.ExpectedReturnDate == nil || !o.ExpectedReturnDate.Before(d)
}

// OutDutyFilter narrows out-duty listings.
type OutDutyFilter struct {
	EmployeeID string
	UnitID     string
	Status     OutDutyStatus
	Page       int
	PageSize   int
}

// Availability answers whether an employee can be rostered on a date.
type Availability struct {
	EmployeeID string            `json:"employeeId"`
	Date       Date              `json:"date"`
	Available  bool              `json:"available"`
	OnLeave    bool              `json:"onLeave"`
	OnOutDuty  bool              `json:"onOutDuty"`
	Leave      *LeaveApplication `json:"leave,omitempty"`
	OutDuty    *OutDuty          `json:"outDuty,omitempty"`
}
