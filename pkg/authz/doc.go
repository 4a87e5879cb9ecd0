// Package authz implements the three-tier authorization model: system admins
// hold platform-wide access, tenant owners hold whatever modules their tenant
// has been granted, and tenant members additionally need a per-module
// permission set delegated by their owner.
//
// The package splits into three collaborators:
//
//   - Engine: read-only decision evaluation (CanAccessModule, HasPermission,
//     ListAvailableModules). Reads are total; missing or inactive records
//     degrade to a false answer rather than an error.
//   - Manager: grant and revoke mutations with role-appropriate side effects.
//     Mutations are partial and surface ErrNotFound / ErrForbidden.
//   - Gate: HTTP middleware that enforces Engine decisions per route and
//     records denials to the audit trail.
//
// Deactivating a module is a global kill switch: no role, system admin
// included, passes a check against an inactive module.
package authz
