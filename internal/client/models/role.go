package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/teamdesk/internal/common"
)

// Role is a closed set of directory roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEngineer Role = "engineer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEngineer:
		return true
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%q: %w", s, common.ErrInvalidRole)
	}
	return r, nil
}

// Permission names a dashboard feature gate.
type Permission string

const (
	PermViewTasks     Permission = "tasks:view"
	PermEditTasks     Permission = "tasks:edit"
	PermViewEngineers Permission = "engineers:view"
	PermEditEngineers Permission = "engineers:edit"
	PermViewSalary    Permission = "salary:view"
	PermChat          Permission = "chat"
	PermCalendar      Permission = "calendar"
	PermManageUsers   Permission = "users:manage"
)

var permissions = map[Role][]Permission{
	RoleAdmin: {
		PermViewTasks, PermEditTasks, PermViewEngineers, PermEditEngineers,
		PermViewSalary, PermChat, PermCalendar, PermManageUsers,
	},
	RoleManager: {
		PermViewTasks, PermEditTasks, PermViewEngineers, PermEditEngineers,
		PermViewSalary, PermChat, PermCalendar,
	},
	RoleEngineer: {
		PermViewTasks, PermEditTasks, PermViewEngineers, PermChat, PermCalendar,
	},
}

// Permissions returns the static permission set for r. Unknown roles get none.
func Permissions(r Role) []Permission {
	return append([]Permission(nil), permissions[r]...)
}

// Can reports whether r grants p.
func (r Role) Can(p Permission) bool {
	for _, x := range permissions[r] {
		if x == p {
			return true
		}
	}
	return false
}
