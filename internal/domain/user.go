package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role represents an operator role in the back-office
type Role string

const (
	RoleSuperuser Role = "SUPERUSER"
	RoleOrgAdmin  Role = "ORGANIZATION_ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// NormalizeRole converts a role string (including legacy formats) to a Role
func NormalizeRole(role string) (Role, error) {
	if role == "" {
		return "", fmt.Errorf("%w: role is required", ErrInvalidRole)
	}

	switch strings.ToUpper(role) {
	case "SUPERUSER", "SUPER_USER":
		return RoleSuperuser, nil
	case "ORGANIZATION_ADMIN", "ORG_ADMIN":
		return RoleOrgAdmin, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
}

// User represents the authenticated operator
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organization_id"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// Validate checks the response shape and normalizes the role in place
func (u *User) Validate() error {
	if u == nil {
		return errors.New("user is nil")
	}
	if u.ID == "" {
		return errors.New("user id is required")
	}
	if u.Email == "" {
		return errors.New("user email is required")
	}
	role, err := NormalizeRole(string(u.Role))
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

// HasRole reports whether the user's role is in the allowed set,
// comparing case-normalized values.
func (u *User) HasRole(allowed []Role) bool {
	if u == nil || len(allowed) == 0 {
		return false
	}
	role, err := NormalizeRole(string(u.Role))
	if err != nil {
		return false
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
