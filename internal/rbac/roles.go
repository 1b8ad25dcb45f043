package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// Known reports whether role is one the owner API understands.
func Known(role string) bool {
	return role == RoleOwner || role == RoleSuperAdmin
}
