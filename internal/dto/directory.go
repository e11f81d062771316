package dto

// CreateHolidayRequest adds a calendar entry.
type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,isodate"`
	Name string `json:"name" validate:"required,max=200"`
	Type string `json:"type" validate:"required,oneof=GAZETTED RESTRICTED"`
}

// HolidayListQuery binds holiday filters.
type HolidayListQuery struct {
	Year int    `form:"year" validate:"omitempty,min=2000,max=2100"`
	Type string `form:"type" validate:"omitempty,oneof=GAZETTED RESTRICTED"`
}

// EmployeeListQuery binds employee directory filters.
type EmployeeListQuery struct {
	UnitID          string `form:"unitId"`
	Search          string `form:"search" validate:"max=100"`
	IncludeInactive bool   `form:"includeInactive"`
	Page            int    `form:"page"`
	PageSize        int    `form:"pageSize"`
}
