package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an operator.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token and operator info.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// UserInfo describes the authenticated operator in responses.
type UserInfo struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"fullName"`
	Role         UserRole `json:"role"`
	AssignedUnit string   `json:"assignedUnit,omitempty"`
}

// JWTClaims represents the access token payload. AssignedUnit is the only unit
// field carried on a session.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
	AssignedUnit string   `json:"assigned_unit,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports the office administrator role.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleOfficeAdmin
}

// UnitScope returns the unit a caller is restricted to, or "" when unrestricted.
func (c *JWTClaims) UnitScope() string {
	if c == nil || c.Role != RoleUnitIncharge {
		return ""
	}
	return c.AssignedUnit
}
