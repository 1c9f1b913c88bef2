package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts
// and of the assignment engine's role preference lists.
const (
	RoleSecurity      = "security"
	RoleSupervisor    = "supervisor"
	RoleAdmin         = "admin"
	RoleLabSupervisor = "lab_supervisor"
	RoleSystem        = "system" // hidden role for automation (escalation sweeps, demo player)
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleSystem }

// KnownRole reports whether role is one of the assignable staff roles.
// The hidden system role is deliberately excluded; it never appears on
// a staff profile.
func KnownRole(role string) bool {
	switch role {
	case RoleSecurity, RoleSupervisor, RoleAdmin, RoleLabSupervisor:
		return true
	default:
		return false
	}
}
