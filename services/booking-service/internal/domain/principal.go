package domain

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
)

// ParseRole accepts role claims in any case.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleOwner:
		return RoleOwner, true
	}
	return "", false
}

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Role  Role
	Email string
}

func (p Principal) IsOwner() bool { return p.Role == RoleOwner }

func (p Principal) Authenticated() error {
	if p.ID == "" || p.Role == "" {
		return Unauthenticated("authentication required")
	}
	return nil
}

func (p Principal) RequireOwner() error {
	if err := p.Authenticated(); err != nil {
		return err
	}
	if !p.IsOwner() {
		return Unauthorized("owner role required")
	}
	return nil
}
