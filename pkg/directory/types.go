package directory

import "time"

// Role is the platform-level role of an actor. The three roles form a strict
// delegation chain: system admins configure tenants, tenant owners delegate
// module access to their members.
type Role string

const (
	RoleSystemAdmin  Role = "system_admin"
	RoleTenantOwner  Role = "tenant_owner"
	RoleTenantMember Role = "tenant_member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystemAdmin, RoleTenantOwner, RoleTenantMember:
		return true
	}
	return false
}

// RequiresTenant reports whether actors with this role must belong to a tenant.
// System admins are platform-level and never carry a tenant reference.
func (r Role) RequiresTenant() bool {
	return r == RoleTenantOwner || r == RoleTenantMember
}

// Permission is a per-module capability token granted to tenant members.
// The vocabulary is open; read/write/delete are the conventional tokens.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

// Actor represents an authenticated principal: a system admin, a tenant owner,
// or a tenant member. Actors are deactivated rather than deleted.
type Actor struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Role      Role       `json:"role"`
	TenantID  *int64     `json:"tenant_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Tenant represents one customer organization. Every tenant has exactly one
// owner actor whose TenantID points back at the tenant.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   int64     `json:"owner_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Module is a pluggable feature unit. The slug is the immutable identity key
// used by all policy checks; deactivating a module is a global kill switch.
type Module struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantModuleGrant expresses "tenant X may use module Y". The row is reused
// rather than deleted: revoking at the tenant tier flips Enabled to false so
// the grant history survives re-enablement.
type TenantModuleGrant struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	ModuleID  int64     `json:"module_id"`
	Enabled   bool      `json:"enabled"`
	GrantedBy *int64    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActorModulePermission expresses "this tenant member holds these permission
// tokens on this module". The permission set is never empty while the row
// exists; an empty grant is represented by deleting the row.
type ActorModulePermission struct {
	ID          int64        `json:"id"`
	ActorID     int64        `json:"actor_id"`
	ModuleID    int64        `json:"module_id"`
	Permissions []Permission `json:"permissions"`
	GrantedBy   int64        `json:"granted_by"`
	GrantedAt   time.Time    `json:"granted_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Has reports whether the permission set contains the given token.
func (p *ActorModulePermission) Has(perm Permission) bool {
	for _, candidate := range p.Permissions {
		if candidate == perm {
			return true
		}
	}
	return false
}

// APIToken is a hashed bearer credential for an actor. Token resolution is the
// authentication collaborator's concern (pkg/authn); the directory only stores
// the rows.
type APIToken struct {
	ID         int64      `json:"id"`
	ActorID    int64      `json:"actor_id"`
	TokenHash  string     `json:"-"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the token has been revoked.
func (t *APIToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its expiry, if one is set.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
