package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/porticohq/portico/pkg/audit"
	"github.com/porticohq/portico/pkg/directory"
)

// Manager performs grant and revoke mutations. Unlike the read-path engine it
// is partial: unknown references and cross-tenant attempts are reported as
// errors, because a silent no-op on a security-relevant write would hide
// operator mistakes.
type Manager struct {
	store directory.Store
	audit audit.Logger
}

// NewManager creates a new grant manager
func NewManager(store directory.Store, auditLogger audit.Logger) *Manager {
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	return &Manager{store: store, audit: auditLogger}
}

// GrantModuleAccess grants the target actor access to the module. The tier of
// the grant depends on the granter's role:
//
//   - A system admin grants at the tenant level: the target's tenant receives
//     an enabled TenantModuleGrant. The permissions argument is ignored at
//     this tier; individual-employee permissions are the tenant owner's to
//     delegate.
//   - A tenant owner grants at the member level: the target (same tenant
//     only) receives an ActorModulePermission row with exactly the given
//     permission set. An existing row is overwritten, not merged.
//
// Any other granter role is Forbidden.
func (m *Manager) GrantModuleAccess(ctx context.Context, granterID, targetID int64, moduleSlug string, permissions []directory.Permission) error {
	granter, target, module, err := m.resolveMutation(ctx, granterID, targetID, moduleSlug)
	if err != nil {
		return err
	}

	switch granter.Role {
	case directory.RoleSystemAdmin:
		if target.TenantID == nil {
			return fmt.Errorf("%w: target actor belongs to no tenant", ErrNotFound)
		}
		grant := &directory.TenantModuleGrant{
			TenantID:  *target.TenantID,
			ModuleID:  module.ID,
			Enabled:   true,
			GrantedBy: &granter.ID,
		}
		if err := m.store.UpsertTenantGrant(ctx, grant); err != nil {
			return err
		}
		m.logGrant(ctx, audit.EventTypeGrantTenant, granter, target, moduleSlug, nil)
		return nil

	case directory.RoleTenantOwner:
		if target.TenantID == nil || *granter.TenantID != *target.TenantID {
			m.logRefusal(ctx, granter, target, moduleSlug, "cross-tenant grant attempt")
			return fmt.Errorf("%w: granter and target belong to different tenants", ErrForbidden)
		}
		tenantGrant, err := m.store.GetTenantGrant(ctx, *granter.TenantID, module.ID)
		if errors.Is(err, directory.ErrNotFound) || (err == nil && !tenantGrant.Enabled) {
			// An owner cannot delegate access the tenant itself lacks.
			m.logRefusal(ctx, granter, target, moduleSlug, "tenant grant missing or disabled")
			return fmt.Errorf("%w: tenant has no enabled grant for module %q", ErrForbidden, moduleSlug)
		}
		if err != nil {
			return err
		}
		if len(permissions) == 0 {
			return fmt.Errorf("%w: permission set must not be empty", ErrForbidden)
		}
		perm := &directory.ActorModulePermission{
			ActorID:     target.ID,
			ModuleID:    module.ID,
			Permissions: dedupePermissions(permissions),
			GrantedBy:   granter.ID,
		}
		if err := m.store.UpsertActorPermission(ctx, perm); err != nil {
			return err
		}
		m.logGrant(ctx, audit.EventTypeGrantMember, granter, target, moduleSlug, perm.Permissions)
		return nil

	default:
		m.logRefusal(ctx, granter, target, moduleSlug, "granter role may not grant")
		return fmt.Errorf("%w: role %q may not grant module access", ErrForbidden, granter.Role)
	}
}

// RevokeModuleAccess removes the target actor's access to the module. The
// two tiers deliberately revoke differently: the tenant-level grant is soft
// disabled (the row is retained for audit and re-enablement) while the
// member-level permission row is hard deleted. Revoking something that is
// already revoked is a no-op, not an error.
func (m *Manager) RevokeModuleAccess(ctx context.Context, granterID, targetID int64, moduleSlug string) error {
	granter, target, module, err := m.resolveMutation(ctx, granterID, targetID, moduleSlug)
	if err != nil {
		return err
	}

	switch granter.Role {
	case directory.RoleSystemAdmin:
		if target.TenantID == nil {
			return fmt.Errorf("%w: target actor belongs to no tenant", ErrNotFound)
		}
		existing, err := m.store.GetTenantGrant(ctx, *target.TenantID, module.ID)
		if errors.Is(err, directory.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existing.Enabled = false
		existing.GrantedBy = &granter.ID
		if err := m.store.UpsertTenantGrant(ctx, existing); err != nil {
			return err
		}
		m.logGrant(ctx, audit.EventTypeRevokeTenant, granter, target, moduleSlug, nil)
		return nil

	case directory.RoleTenantOwner:
		if target.TenantID == nil || *granter.TenantID != *target.TenantID {
			m.logRefusal(ctx, granter, target, moduleSlug, "cross-tenant revoke attempt")
			return fmt.Errorf("%w: granter and target belong to different tenants", ErrForbidden)
		}
		if err := m.store.DeleteActorPermission(ctx, target.ID, module.ID); err != nil {
			return err
		}
		m.logGrant(ctx, audit.EventTypeRevokeMember, granter, target, moduleSlug, nil)
		return nil

	default:
		m.logRefusal(ctx, granter, target, moduleSlug, "granter role may not revoke")
		return fmt.Errorf("%w: role %q may not revoke module access", ErrForbidden, granter.Role)
	}
}

// resolveMutation loads the three referenced records. A missing granter,
// target, or module is NotFound: mutations report dangling references instead
// of degrading.
func (m *Manager) resolveMutation(ctx context.Context, granterID, targetID int64, moduleSlug string) (*directory.Actor, *directory.Actor, *directory.Module, error) {
	granter, err := m.store.GetActor(ctx, granterID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("%w: granter actor %d", ErrNotFound, granterID)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := m.store.GetActor(ctx, targetID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("%w: target actor %d", ErrNotFound, targetID)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	module, err := m.store.GetModuleBySlug(ctx, moduleSlug)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("%w: module %q", ErrNotFound, moduleSlug)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return granter, target, module, nil
}

func (m *Manager) logGrant(ctx context.Context, eventType audit.EventType, granter, target *directory.Actor, moduleSlug string, perms []directory.Permission) {
	event := audit.NewEvent(eventType, audit.EventStatusSuccess)
	event.ActorID = &granter.ID
	event.TenantID = granter.TenantID
	event.TargetActorID = &target.ID
	event.ModuleSlug = moduleSlug
	if len(perms) > 0 {
		event.Metadata = map[string]interface{}{"permissions": perms}
	}
	// Audit failures must not fail the mutation; the write already happened.
	_ = m.audit.Log(ctx, event)
}

func (m *Manager) logRefusal(ctx context.Context, granter, target *directory.Actor, moduleSlug, reason string) {
	event := audit.NewEvent(audit.EventTypeGrantRefused, audit.EventStatusDenied)
	event.ActorID = &granter.ID
	event.TenantID = granter.TenantID
	event.TargetActorID = &target.ID
	event.ModuleSlug = moduleSlug
	event.Message = reason
	_ = m.audit.Log(ctx, event)
}

func dedupePermissions(perms []directory.Permission) []directory.Permission {
	seen := make(map[directory.Permission]struct{}, len(perms))
	result := make([]directory.Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}
