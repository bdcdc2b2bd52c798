package auth

// Permission represents a named capability in the API.
type Permission string

// Permission constants.
const (
	PermNetworkRead    Permission = "network:read"
	PermNetworkOperate Permission = "network:operate"
	PermAuditRead      Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermNetworkRead,
		PermAuditRead,
	},
	RoleOperator: {
		PermNetworkRead,
		PermNetworkOperate,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}
