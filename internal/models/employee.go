package models

import "time"

// Gender drives eligibility for maternity and child-care leave.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Unit is an organisational unit employees are posted to.
type Unit struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Employee is a member of the establishment.
type Employee struct {
	ID            string    `db:"id" json:"id"`
	ServiceNumber string    `db:"service_number" json:"serviceNumber"`
	Name          string    `db:"name" json:"name"`
	Rank          string    `db:"rank" json:"rank"`
	Gender        Gender    `db:"gender" json:"gender"`
	UnitID        *string   `db:"unit_id" json:"unitId,omitempty"`
	UnitName      *string   `db:"unit_name" json:"unitName,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// InUnit reports whether the employee is currently posted to unitID.
func (e *Employee) InUnit(unitID string) bool {
	return e != nil && e.UnitID != nil && *e.UnitID == unitID
}

// EmployeeFilter captures listing criteria. Inactive employees are hidden unless requested.
type EmployeeFilter struct {
	UnitID          string
	Search          string
	IncludeInactive bool
	Page            int
	PageSize        int
}
