package models

import "time"

// UserRole represents the available roles for the back office.
type UserRole string

const (
	RoleOfficeAdmin  UserRole = "office_admin"
	RoleUnitIncharge UserRole = "unit_incharge"
	RoleCRQ          UserRole = "crq"
)

// User represents an operator account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	AssignedUnit *string    `db:"assigned_unit" json:"assignedUnit,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}
