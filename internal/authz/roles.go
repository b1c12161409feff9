package authz

import (
	"fmt"
	"strings"
)

// Role is one of the five canonical roles. The zero value is invalid;
// unknown role names never parse into a Role, so handlers can trust that a
// Role inside the gate is always a member of the hierarchy.
type Role string

const (
	RoleSuperadmin Role = "Superadmin"
	RoleAdmin      Role = "Admin"
	RoleUTP        Role = "UTP"
	RoleTeacher    Role = "Teacher"
	RoleStudent    Role = "Student"
)

// roleRanks orders roles for management decisions. Rank is unrelated to
// functional permissions: a role may hold a permission a higher rank lacks.
var roleRanks = map[Role]int{
	RoleSuperadmin: 5,
	RoleAdmin:      4,
	RoleUTP:        3,
	RoleTeacher:    2,
	RoleStudent:    1,
}

// ParseRole validates a role name coming from storage or a token.
func ParseRole(name string) (Role, error) {
	r := Role(strings.TrimSpace(name))
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("authz: unknown role %q", name)
	}
	return r, nil
}

// Rank returns the hierarchy rank, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role is one of the canonical five.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// CanManage reports whether r strictly outranks target. Peers cannot manage
// each other; this blocks lateral assignments such as an Admin promoting
// another user to Admin.
func (r Role) CanManage(target Role) bool {
	return roleRanks[r] > roleRanks[target]
}

// Administrative reports whether the role belongs to the administrative
// tier that bypasses resource-ownership checks.
func (r Role) Administrative() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleUTP:
		return true
	}
	return false
}

// Global reports whether the role operates across all schools.
func (r Role) Global() bool {
	return r == RoleSuperadmin
}
