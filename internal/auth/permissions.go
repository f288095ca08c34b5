package auth

import "context"

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermDashboardView Permission = "dashboard:view"
	PermContentEdit   Permission = "content:edit"
	PermProfileSelf   Permission = "profile:self"
	PermUserList      Permission = "user:list"
	PermUserManage    Permission = "user:manage"
	PermUserDelete    Permission = "user:delete"
	PermRoleManage    Permission = "role:manage"
	PermAuditRead     Permission = "audit:read"
)

// builtinPermissions maps each built-in role to its granted permissions.
// Legacy string roles with no stored definition resolve here; a stored
// RoleDefinition of the same name overrides this table. Both paths
// converge on PermissionsFor, the single authorisation decision function.
var builtinPermissions = map[Role][]Permission{
	RoleUser: {
		PermDashboardView,
		PermProfileSelf,
	},
	RoleEditor: {
		PermDashboardView,
		PermProfileSelf,
		PermContentEdit,
	},
	RoleAdmin: {
		PermDashboardView,
		PermProfileSelf,
		PermContentEdit,
		PermUserList,
		PermUserManage,
		PermUserDelete,
		PermRoleManage,
		PermAuditRead,
	},
}

// RoleResolver resolves a role name to a stored permission set. The role
// repository implements it; ok is false when no definition row exists.
type RoleResolver interface {
	Resolve(ctx context.Context, name Role) (perms []Permission, ok bool, err error)
}

// PermissionsFor returns the permission set for a role. A stored
// definition wins over the built-in table; an unknown role with no stored
// definition has no permissions. A nil resolver consults the built-in
// table alone.
func PermissionsFor(ctx context.Context, role Role, resolver RoleResolver) ([]Permission, error) {
	if resolver != nil {
		perms, ok, err := resolver.Resolve(ctx, role)
		if err != nil {
			return nil, err
		}
		if ok {
			result := make([]Permission, len(perms))
			copy(result, perms)
			return result, nil
		}
	}

	perms := builtinPermissions[role]
	if perms == nil {
		return nil, nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result, nil
}

// HasPermission returns true if the role grants the specified permission.
func HasPermission(ctx context.Context, role Role, perm Permission, resolver RoleResolver) (bool, error) {
	perms, err := PermissionsFor(ctx, role, resolver)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}
