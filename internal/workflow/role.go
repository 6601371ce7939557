package workflow

import (
	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// Role is the approval-hierarchy tier of an actor.
type Role string

const (
	RoleNone           Role = ""
	RoleEngineer       Role = "ENGINEER"
	RoleSalesExecutive Role = "SALES_EXECUTIVE"
	RolePlantAdmin     Role = "PLANT_ADMIN"
	RoleRegionAdmin    Role = "REGION_ADMIN"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

var roles = []Role{
	RoleEngineer, RoleSalesExecutive, RolePlantAdmin, RoleRegionAdmin, RoleSuperAdmin,
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	for _, r := range roles {
		if string(r) == s {
			return r, nil
		}
	}
	return RoleNone, errors.InvalidInput("role", "unknown role '"+s+"'")
}

// Display returns the human-readable role name used in error messages.
func (r Role) Display() string {
	switch r {
	case RoleEngineer:
		return "Engineer"
	case RoleSalesExecutive:
		return "Sales Executive"
	case RolePlantAdmin:
		return "Plant Admin"
	case RoleRegionAdmin:
		return "Regional Admin"
	case RoleSuperAdmin:
		return "Super Admin"
	default:
		return string(r)
	}
}

// roleSet is a small allowed-roles set used by the policy tables.
type roleSet []Role

func (rs roleSet) contains(r Role) bool {
	for _, allowed := range rs {
		if allowed == r {
			return true
		}
	}
	return false
}
