package models

import "github.com/golang-jwt/jwt/v5"

// Caller roles. Authentication happens outside the core; these labels
// are the only part of it the core consumes.
const (
	RoleAgent        = "agent"
	RoleAdmin        = "admin"
	RoleSuperAdmin   = "super_admin"
	RoleOrganization = "organization"
	RoleEmployee     = "employee"
)

// UserClaims carries the role label (and for organization callers, the
// organization scope) extracted from the bearer token.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID         uint   `json:"user_id"`
	Role           string `json:"role"`
	OrganizationID uint   `json:"organization_id,omitempty"`
}

// IsStaff reports whether the role sees loans across all organizations.
func (c *UserClaims) IsStaff() bool {
	return c.Role == RoleAgent || c.Role == RoleAdmin || c.Role == RoleSuperAdmin
}
