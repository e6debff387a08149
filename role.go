package identity

import "strings"

// Role is the application-level role derived from the provider's org role.
// The set is closed: adding a role means updating MapOrgRole, DashboardPath,
// and the allow-lists in routes. Roles are never stored; they are always
// re-derived from the session's org role.
type Role string

const (
	RoleStudent           Role = "student"
	RoleFaculty           Role = "faculty"
	RoleHOD               Role = "hod"
	RoleDean              Role = "dean"
	RoleAdmin             Role = "admin"
	RoleComplianceOfficer Role = "compliance_officer"
	RoleManagement        Role = "management"
)

// AllRoles returns every known role in a stable order.
func AllRoles() []Role {
	return []Role{
		RoleStudent,
		RoleFaculty,
		RoleHOD,
		RoleDean,
		RoleAdmin,
		RoleComplianceOfficer,
		RoleManagement,
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleHOD, RoleDean,
		RoleAdmin, RoleComplianceOfficer, RoleManagement:
		return true
	}
	return false
}

// orgRolePrefix is what the identity provider prepends to org-scoped roles.
const orgRolePrefix = "org:"

// MapOrgRole converts a raw provider role string into a Role. The function
// is total: unknown, empty, or missing input maps to RoleStudent, the
// least-privileged role that still has a dashboard. Mapping to an error or
// a zero value here would lock the user out instead of landing them
// somewhere harmless.
func MapOrgRole(raw string) Role {
	r := Role(strings.TrimPrefix(strings.TrimSpace(raw), orgRolePrefix))
	if r.Valid() {
		return r
	}
	return RoleStudent
}

// DashboardPath returns the canonical dashboard path for a role. Total over
// the closed Role set; values outside the set get the student dashboard so
// the function never produces an unreachable path.
func DashboardPath(r Role) string {
	switch r {
	case RoleFaculty:
		return "/dashboard/faculty"
	case RoleHOD:
		return "/dashboard/hod"
	case RoleDean:
		return "/dashboard/dean"
	case RoleAdmin:
		return "/dashboard/admin"
	case RoleComplianceOfficer:
		return "/dashboard/compliance"
	case RoleManagement:
		return "/dashboard/management"
	case RoleStudent:
		return "/dashboard/student"
	default:
		return "/dashboard/student"
	}
}
