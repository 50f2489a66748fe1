package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleTenantAdmin = "tenant_admin"
	RoleFinance     = "finance"
	RoleSupport     = "support"
	RoleSuperAdmin  = "super_admin"
	RoleBillingOps  = "billing_ops" // hidden role: Adjust and other operator-only paths
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleBillingOps }
