package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/porticohq/portico/pkg/directory"
)

// Engine evaluates module access for actors. It is stateless and read-only:
// every decision is computed fresh from current directory rows. There is no
// decision cache; the correctness of a security boundary is worth a lookup.
type Engine struct {
	store directory.Store
}

// NewEngine creates a new authorization engine
func NewEngine(store directory.Store) *Engine {
	return &Engine{store: store}
}

// Decision is the outcome of a single authorization check
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func allow(reason string) *Decision {
	return &Decision{Allowed: true, Reason: reason, CheckedAt: time.Now()}
}

func deny(reason string) *Decision {
	return &Decision{Allowed: false, Reason: reason, CheckedAt: time.Now()}
}

// CanAccessModule reports whether the actor may use the module at all.
// It never fails for missing or inactive records; those degrade to false so
// callers can use the result directly as a gate. Errors are infrastructure
// failures only.
func (e *Engine) CanAccessModule(ctx context.Context, actorID int64, moduleSlug string) (bool, error) {
	decision, err := e.ExplainModuleAccess(ctx, actorID, moduleSlug)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ExplainModuleAccess is CanAccessModule with the denial reason attached,
// used by the policy gate for audit logging.
func (e *Engine) ExplainModuleAccess(ctx context.Context, actorID int64, moduleSlug string) (*Decision, error) {
	actor, module, decision, err := e.resolve(ctx, actorID, moduleSlug)
	if err != nil || decision != nil {
		return decision, err
	}

	// Role dispatch. The default arm is the deny-by-default policy: any role
	// or state not explicitly recognized here must never gain access.
	switch actor.Role {
	case directory.RoleSystemAdmin:
		return allow("system admin"), nil

	case directory.RoleTenantOwner:
		grant, err := e.enabledTenantGrant(ctx, *actor.TenantID, module.ID)
		if err != nil {
			return nil, err
		}
		if grant == nil {
			return deny("tenant has no enabled grant for module"), nil
		}
		return allow("tenant grant enabled"), nil

	case directory.RoleTenantMember:
		grant, err := e.enabledTenantGrant(ctx, *actor.TenantID, module.ID)
		if err != nil {
			return nil, err
		}
		if grant == nil {
			// A standing member permission row never outranks tenant-level
			// disablement.
			return deny("tenant has no enabled grant for module"), nil
		}
		perm, err := e.actorPermission(ctx, actor.ID, module.ID)
		if err != nil {
			return nil, err
		}
		if perm == nil {
			return deny("member holds no permissions for module"), nil
		}
		return allow("tenant grant enabled and member permissions present"), nil

	default:
		return deny(fmt.Sprintf("unrecognized role %q", actor.Role)), nil
	}
}

// HasPermission reports whether the actor holds the specific permission token
// on the module. Same degradation rules as CanAccessModule.
func (e *Engine) HasPermission(ctx context.Context, actorID int64, moduleSlug string, permission directory.Permission) (bool, error) {
	decision, err := e.ExplainPermission(ctx, actorID, moduleSlug, permission)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ExplainPermission is HasPermission with the denial reason attached.
func (e *Engine) ExplainPermission(ctx context.Context, actorID int64, moduleSlug string, permission directory.Permission) (*Decision, error) {
	actor, module, decision, err := e.resolve(ctx, actorID, moduleSlug)
	if err != nil || decision != nil {
		return decision, err
	}

	switch actor.Role {
	case directory.RoleSystemAdmin:
		return allow("system admin"), nil

	case directory.RoleTenantOwner:
		// Owners implicitly hold every permission on any module their tenant
		// can access; there is no finer-grained owner permission set.
		grant, err := e.enabledTenantGrant(ctx, *actor.TenantID, module.ID)
		if err != nil {
			return nil, err
		}
		if grant == nil {
			return deny("tenant has no enabled grant for module"), nil
		}
		return allow("tenant owner"), nil

	case directory.RoleTenantMember:
		// The tenant grant is re-verified here even though a member permission
		// row should not normally outlive a disabled grant. A stale row must
		// not keep authorizing writes after the tenant loses the module.
		grant, err := e.enabledTenantGrant(ctx, *actor.TenantID, module.ID)
		if err != nil {
			return nil, err
		}
		if grant == nil {
			return deny("tenant has no enabled grant for module"), nil
		}
		perm, err := e.actorPermission(ctx, actor.ID, module.ID)
		if err != nil {
			return nil, err
		}
		if perm == nil {
			return deny("member holds no permissions for module"), nil
		}
		if !perm.Has(permission) {
			return deny(fmt.Sprintf("member lacks %q permission", permission)), nil
		}
		return allow("member permission present"), nil

	default:
		return deny(fmt.Sprintf("unrecognized role %q", actor.Role)), nil
	}
}

// ListAvailableModules returns the active modules the actor can use. System
// admins see every active module; owners see modules with an enabled tenant
// grant; members additionally need their own permission row, keeping the
// listing consistent with CanAccessModule for every module in the active set.
func (e *Engine) ListAvailableModules(ctx context.Context, actorID int64) ([]*directory.Module, error) {
	actor, err := e.store.GetActor(ctx, actorID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsActive {
		return nil, nil
	}

	modules, err := e.store.ListModules(ctx, true)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case directory.RoleSystemAdmin:
		return modules, nil

	case directory.RoleTenantOwner, directory.RoleTenantMember:
		grants, err := e.store.ListTenantGrants(ctx, *actor.TenantID)
		if err != nil {
			return nil, err
		}
		enabled := make(map[int64]bool, len(grants))
		for _, g := range grants {
			if g.Enabled {
				enabled[g.ModuleID] = true
			}
		}

		var memberPerms map[int64]bool
		if actor.Role == directory.RoleTenantMember {
			perms, err := e.store.ListActorPermissions(ctx, actor.ID)
			if err != nil {
				return nil, err
			}
			memberPerms = make(map[int64]bool, len(perms))
			for _, p := range perms {
				memberPerms[p.ModuleID] = true
			}
		}

		var available []*directory.Module
		for _, m := range modules {
			if !enabled[m.ID] {
				continue
			}
			if memberPerms != nil && !memberPerms[m.ID] {
				continue
			}
			available = append(available, m)
		}
		return available, nil

	default:
		return nil, nil
	}
}

// resolve loads the actor and module and applies the shared preconditions.
// A non-nil Decision means the check short-circuited to a denial.
func (e *Engine) resolve(ctx context.Context, actorID int64, moduleSlug string) (*directory.Actor, *directory.Module, *Decision, error) {
	actor, err := e.store.GetActor(ctx, actorID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, deny("actor not found"), nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if !actor.IsActive {
		return nil, nil, deny("actor is deactivated"), nil
	}
	if actor.Role.RequiresTenant() && actor.TenantID == nil {
		// Violates the directory invariant; treat as unrecognized state.
		return nil, nil, deny("tenant-scoped actor has no tenant"), nil
	}

	module, err := e.store.GetModuleBySlug(ctx, moduleSlug)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, deny("module not found"), nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if !module.IsActive {
		// Deactivation is a global kill switch; it outranks every role
		// including system admin.
		return nil, nil, deny("module is deactivated"), nil
	}
	return actor, module, nil, nil
}

func (e *Engine) enabledTenantGrant(ctx context.Context, tenantID, moduleID int64) (*directory.TenantModuleGrant, error) {
	grant, err := e.store.GetTenantGrant(ctx, tenantID, moduleID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !grant.Enabled {
		return nil, nil
	}
	return grant, nil
}

func (e *Engine) actorPermission(ctx context.Context, actorID, moduleID int64) (*directory.ActorModulePermission, error) {
	perm, err := e.store.GetActorPermission(ctx, actorID, moduleID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return perm, nil
}
