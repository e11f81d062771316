package dto

// CreateOutDutyRequest records an employee leaving on duty.
type CreateOutDutyRequest struct {
	EmployeeID         string `json:"employeeId" validate:"required"`
	DutyType           string `json:"dutyType" validate:"required,max=100"`
	Location           string `json:"location" validate:"required,max=200"`
	Purpose            string `json:"purpose" validate:"max=500"`
	StartDate          string `json:"startDate" validate:"required,isodate"`
	ExpectedReturnDate string `json:"expectedReturnDate" validate:"omitempty,isodate"`
	Remarks            string `json:"remarks" validate:"max=500"`
}

// CloseOutDutyRequest returns or cancels an ongoing out-duty.
type CloseOutDutyRequest struct {
	ActualReturnDate string `json:"actualReturnDate" validate:"omitempty,isodate"`
	Remarks          string `json:"remarks" validate:"max=500"`
}

// OutDutyListQuery binds out-duty list filters.
type OutDutyListQuery struct {
	EmployeeID string `form:"employeeId"`
	Status     string `form:"status" validate:"omitempty,oneof=ONGOING RETURNED CANCELLED"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}
