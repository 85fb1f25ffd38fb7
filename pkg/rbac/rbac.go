// Package rbac provides role-based access control checks.
package rbac

import "github.com/NicolasHaas/gobbs/pkg/model"

// permissionMatrix maps roles to their allowed permissions.
var permissionMatrix = map[model.Role]map[model.Permission]bool{
	model.RoleAdmin: {
		model.PermManageUsers: true,
		model.PermBackup:      true,
	},
	model.RoleUser: {
		// No special permissions. Board, chat, messages, and files only.
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role model.Role, perm model.Permission) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// RequirePermission returns an error message if the role lacks the permission, or empty string if allowed.
func RequirePermission(role model.Role, perm model.Permission) string {
	if HasPermission(role, perm) {
		return ""
	}
	return "permission denied: " + permName(perm) + " requires admin role"
}

func permName(p model.Permission) string {
	switch p {
	case model.PermManageUsers:
		return "manage_users"
	case model.PermBackup:
		return "backup"
	default:
		return "unknown"
	}
}
