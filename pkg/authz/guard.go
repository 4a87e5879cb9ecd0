package authz

import (
	"fmt"

	"github.com/porticohq/portico/pkg/directory"
)

// DenySystemAdminData rejects system admins from tenant business data. Admin
// reach covers configuration (tenants, modules, grants) but never the data
// inside a module; every business-data service re-checks this at the top of
// each method rather than relying on a single chokepoint.
func DenySystemAdminData(actor *directory.Actor) error {
	if actor == nil {
		return fmt.Errorf("%w: no actor", ErrForbidden)
	}
	if actor.Role == directory.RoleSystemAdmin {
		return fmt.Errorf("%w: system admins cannot access tenant business data", ErrForbidden)
	}
	if actor.TenantID == nil {
		return fmt.Errorf("%w: actor belongs to no tenant", ErrForbidden)
	}
	return nil
}
