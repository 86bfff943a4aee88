package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleVendor    Role = "vendor"
	RoleDeliverer Role = "deliverer"
	RoleCustomer  Role = "customer"
)

func (r Role) IsValid() bool {
	return r == RoleVendor || r == RoleDeliverer || r == RoleCustomer
}

func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("unknown actor role %q", s)
	}
	return role, nil
}

// Actor is the authenticated identity behind a session. Its role never changes
// while the session lives.
type Actor struct {
	ID   string
	Role Role
}

// Profile is the row the identity provider resolves an actor from.
type Profile struct {
	ID          string
	Role        Role
	DisplayName string
}
