package assignment

import "campus-sentinel/internal/rbac"

// roleSkillMatch maps an anomaly type to the roles suited to handle it,
// in order of preference. Unknown types fall back to the default entry.
var roleSkillMatch = map[string][]string{
	"unauthorized_access":  {rbac.RoleSecurity, rbac.RoleSupervisor, rbac.RoleAdmin},
	"suspicious_loitering": {rbac.RoleSecurity, rbac.RoleSupervisor},
	"off_hours_access":     {rbac.RoleSecurity, rbac.RoleLabSupervisor},
	"role_violation":       {rbac.RoleSupervisor, rbac.RoleSecurity},
	"impossible_travel":    {rbac.RoleSupervisor, rbac.RoleAdmin},
	"curfew_violation":     {rbac.RoleSecurity, rbac.RoleSupervisor},
	"overcrowding":         {rbac.RoleSecurity, rbac.RoleSupervisor},
	"equipment_misuse":     {rbac.RoleLabSupervisor, rbac.RoleSupervisor},
	"entry_without_exit":   {rbac.RoleSecurity},
	"exit_without_entry":   {rbac.RoleSecurity},

	"default": {rbac.RoleSecurity, rbac.RoleSupervisor, rbac.RoleAdmin},
}

func preferredRoles(anomalyType string) []string {
	if anomalyType == "" {
		anomalyType = "default"
	}
	roles, ok := roleSkillMatch[anomalyType]
	if !ok {
		return roleSkillMatch["default"]
	}
	return roles
}

// skillScore rates how well a role fits an anomaly type. Lower is
// better: position in the preference list normalized to 0-1, or 1.0 for
// roles not in the list.
func skillScore(role string, anomalyType string) float64 {
	roles := preferredRoles(anomalyType)
	for i, r := range roles {
		if r == role {
			return float64(i) / float64(len(roles))
		}
	}
	return 1.0
}
