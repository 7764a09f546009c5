package domain

import (
	"fmt"
	"strings"
)

// Role selects which dashboard sections are bound.
type Role int

const (
	RoleUnknown Role = iota
	RolePatient
	RoleProvider
	RoleOrganization
	RoleAdmin
)

var roleTags = map[Role]string{
	RolePatient:      "PATIENT",
	RoleProvider:     "INDIVIDUAL_PROVIDER",
	RoleOrganization: "ORGANIZATION",
	RoleAdmin:        "ADMIN",
}

// ParseRole maps a data-user-type tag (case-insensitive) to a Role.
func ParseRole(tag string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(tag))
	for role, t := range roleTags {
		if t == normalized {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown user type: %q", tag)
}

// Tag returns the data-user-type value of the role.
func (r Role) Tag() string {
	return roleTags[r]
}

// String returns a lower-case label for display.
func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleProvider:
		return "provider"
	case RoleOrganization:
		return "organization"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}
