package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by point lookups when the referenced record does not
// exist. Callers that treat absence as denial (the authorization engine read
// path) check for it with errors.Is and fold it into a false result.
var ErrNotFound = errors.New("directory: not found")

// Store is the persistence boundary for the directory entities. The
// authorization engine and grant manager hold no state of their own; every
// decision is computed fresh against the store.
type Store interface {
	// Actors
	CreateActor(ctx context.Context, actor *Actor) error
	GetActor(ctx context.Context, id int64) (*Actor, error)
	GetActorByUsername(ctx context.Context, username string) (*Actor, error)
	ListActorsByTenant(ctx context.Context, tenantID int64) ([]*Actor, error)
	SetActorActive(ctx context.Context, id int64, active bool) error

	// Tenants
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id int64) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	SetTenantActive(ctx context.Context, id int64, active bool) error

	// Modules
	CreateModule(ctx context.Context, module *Module) error
	GetModule(ctx context.Context, id int64) (*Module, error)
	GetModuleBySlug(ctx context.Context, slug string) (*Module, error)
	ListModules(ctx context.Context, activeOnly bool) ([]*Module, error)
	SetModuleActive(ctx context.Context, id int64, active bool) error

	// Tenant-level grants. Upsert is keyed on (tenant, module); concurrent
	// writers for the same pair resolve last-write-wins via the unique
	// constraint.
	UpsertTenantGrant(ctx context.Context, grant *TenantModuleGrant) error
	GetTenantGrant(ctx context.Context, tenantID, moduleID int64) (*TenantModuleGrant, error)
	ListTenantGrants(ctx context.Context, tenantID int64) ([]*TenantModuleGrant, error)

	// Member-level permissions. Upsert overwrites the permission set and the
	// granted_by audit field; delete removes the row entirely.
	UpsertActorPermission(ctx context.Context, perm *ActorModulePermission) error
	GetActorPermission(ctx context.Context, actorID, moduleID int64) (*ActorModulePermission, error)
	ListActorPermissions(ctx context.Context, actorID int64) ([]*ActorModulePermission, error)
	DeleteActorPermission(ctx context.Context, actorID, moduleID int64) error

	// API tokens (authentication collaborator storage)
	CreateAPIToken(ctx context.Context, token *APIToken) error
	GetAPITokenByHash(ctx context.Context, tokenHash string) (*APIToken, error)
	RevokeAPIToken(ctx context.Context, id int64) error
}
