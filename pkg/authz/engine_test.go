package authz

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/directory"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing
)

func setupTestStore(t *testing.T) *directory.PostgresStore {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			owner_id INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE actors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT,
			role TEXT NOT NULL,
			tenant_id INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE modules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE tenant_module_grants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			module_id INTEGER NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			granted_by INTEGER,
			granted_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(tenant_id, module_id)
		);
		CREATE TABLE actor_module_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER NOT NULL,
			module_id INTEGER NOT NULL,
			permissions TEXT NOT NULL,
			granted_by INTEGER NOT NULL,
			granted_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(actor_id, module_id)
		);
		CREATE TABLE api_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			revoked_at TIMESTAMP
		);
	`)
	require.NoError(t, err)

	return directory.NewPostgresStore(db)
}

// fixture is the standard authorization scenario: two tenants, one module
// granted to the first tenant, one module deactivated platform-wide.
type fixture struct {
	store *directory.PostgresStore

	admin       *directory.Actor
	acmeOwner   *directory.Actor
	acmeMember  *directory.Actor
	globexOwner *directory.Actor

	acme   *directory.Tenant
	globex *directory.Tenant

	notes   *directory.Module
	dormant *directory.Module
}

func newFixture(t *testing.T) *fixture {
	store := setupTestStore(t)
	ctx := context.Background()

	f := &fixture{store: store}

	f.admin = &directory.Actor{Username: "root", Role: directory.RoleSystemAdmin, IsActive: true}
	require.NoError(t, store.CreateActor(ctx, f.admin))

	var err error
	f.acme, f.acmeOwner, err = store.ProvisionTenant(ctx, directory.ProvisionTenantRequest{
		Name: "Acme", OwnerUsername: "alice",
	})
	require.NoError(t, err)
	f.acmeMember, err = store.ProvisionMember(ctx, f.acme.ID, "bob", "")
	require.NoError(t, err)

	f.globex, f.globexOwner, err = store.ProvisionTenant(ctx, directory.ProvisionTenantRequest{
		Name: "Globex", OwnerUsername: "hank",
	})
	require.NoError(t, err)

	f.notes = &directory.Module{Name: "Text Notes", Slug: "notes", IsActive: true}
	require.NoError(t, store.CreateModule(ctx, f.notes))
	f.dormant = &directory.Module{Name: "Dormant", Slug: "dormant", IsActive: false}
	require.NoError(t, store.CreateModule(ctx, f.dormant))

	// Acme holds the notes grant; Globex holds nothing.
	require.NoError(t, store.UpsertTenantGrant(ctx, &directory.TenantModuleGrant{
		TenantID: f.acme.ID, ModuleID: f.notes.ID, Enabled: true, GrantedBy: &f.admin.ID,
	}))

	return f
}

func (f *fixture) grantMember(t *testing.T, perms ...directory.Permission) {
	require.NoError(t, f.store.UpsertActorPermission(context.Background(), &directory.ActorModulePermission{
		ActorID:     f.acmeMember.ID,
		ModuleID:    f.notes.ID,
		Permissions: perms,
		GrantedBy:   f.acmeOwner.ID,
	}))
}

func TestCanAccessModule(t *testing.T) {
	ctx := context.Background()

	t.Run("system admin reaches every active module", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		ok, err := engine.CanAccessModule(ctx, f.admin.ID, "notes")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("deactivated module denies even system admin", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		decision, err := engine.ExplainModuleAccess(ctx, f.admin.ID, "dormant")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "module is deactivated", decision.Reason)
	})

	t.Run("owner allowed iff tenant grant enabled", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		ok, err := engine.CanAccessModule(ctx, f.acmeOwner.ID, "notes")
		require.NoError(t, err)
		assert.True(t, ok)

		// Globex has no grant
		ok, err = engine.CanAccessModule(ctx, f.globexOwner.ID, "notes")
		require.NoError(t, err)
		assert.False(t, ok)

		// Disabling the grant closes the door for the owner too
		require.NoError(t, f.store.UpsertTenantGrant(ctx, &directory.TenantModuleGrant{
			TenantID: f.acme.ID, ModuleID: f.notes.ID, Enabled: false, GrantedBy: &f.admin.ID,
		}))
		ok, err = engine.CanAccessModule(ctx, f.acmeOwner.ID, "notes")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("member needs tenant grant and own permission row", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		// Grant present, no permission row yet
		ok, err := engine.CanAccessModule(ctx, f.acmeMember.ID, "notes")
		require.NoError(t, err)
		assert.False(t, ok)

		f.grantMember(t, directory.PermissionRead)
		ok, err = engine.CanAccessModule(ctx, f.acmeMember.ID, "notes")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale member row does not outlive disabled tenant grant", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead, directory.PermissionWrite)

		require.NoError(t, f.store.UpsertTenantGrant(ctx, &directory.TenantModuleGrant{
			TenantID: f.acme.ID, ModuleID: f.notes.ID, Enabled: false, GrantedBy: &f.admin.ID,
		}))

		decision, err := engine.ExplainModuleAccess(ctx, f.acmeMember.ID, "notes")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "tenant has no enabled grant for module", decision.Reason)
	})

	t.Run("missing records degrade to false, not error", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		ok, err := engine.CanAccessModule(ctx, 99999, "notes")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = engine.CanAccessModule(ctx, f.acmeOwner.ID, "no-such-module")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("deactivated actor is denied", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead)

		require.NoError(t, f.store.SetActorActive(ctx, f.acmeMember.ID, false))
		ok, err := engine.CanAccessModule(ctx, f.acmeMember.ID, "notes")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("admin and owner hold every permission", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		for _, p := range []directory.Permission{directory.PermissionRead, directory.PermissionWrite, directory.PermissionDelete} {
			ok, err := engine.HasPermission(ctx, f.admin.ID, "notes", p)
			require.NoError(t, err)
			assert.True(t, ok, "admin %s", p)

			ok, err = engine.HasPermission(ctx, f.acmeOwner.ID, "notes", p)
			require.NoError(t, err)
			assert.True(t, ok, "owner %s", p)
		}
	})

	t.Run("member holds exactly the granted set", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead, directory.PermissionWrite)

		ok, err := engine.HasPermission(ctx, f.acmeMember.ID, "notes", directory.PermissionRead)
		require.NoError(t, err)
		assert.True(t, ok)

		decision, err := engine.ExplainPermission(ctx, f.acmeMember.ID, "notes", directory.PermissionDelete)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Contains(t, decision.Reason, "lacks")
	})

	t.Run("re-grant replaces the set", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead, directory.PermissionWrite)
		f.grantMember(t, directory.PermissionRead)

		ok, err := engine.HasPermission(ctx, f.acmeMember.ID, "notes", directory.PermissionWrite)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stale permission row denied once grant disabled", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead)

		require.NoError(t, f.store.UpsertTenantGrant(ctx, &directory.TenantModuleGrant{
			TenantID: f.acme.ID, ModuleID: f.notes.ID, Enabled: false, GrantedBy: &f.admin.ID,
		}))

		ok, err := engine.HasPermission(ctx, f.acmeMember.ID, "notes", directory.PermissionRead)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestListAvailableModules(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sees all active modules", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		modules, err := engine.ListAvailableModules(ctx, f.admin.ID)
		require.NoError(t, err)
		require.Len(t, modules, 1)
		assert.Equal(t, "notes", modules[0].Slug)
	})

	t.Run("owner sees granted modules, member needs a permission row", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		modules, err := engine.ListAvailableModules(ctx, f.acmeOwner.ID)
		require.NoError(t, err)
		assert.Len(t, modules, 1)

		modules, err = engine.ListAvailableModules(ctx, f.acmeMember.ID)
		require.NoError(t, err)
		assert.Empty(t, modules)

		f.grantMember(t, directory.PermissionRead)
		modules, err = engine.ListAvailableModules(ctx, f.acmeMember.ID)
		require.NoError(t, err)
		assert.Len(t, modules, 1)
	})

	t.Run("ungranted tenant sees nothing", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		modules, err := engine.ListAvailableModules(ctx, f.globexOwner.ID)
		require.NoError(t, err)
		assert.Empty(t, modules)
	})

	t.Run("consistent with CanAccessModule across the active set", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)
		f.grantMember(t, directory.PermissionRead)

		all, err := f.store.ListModules(ctx, true)
		require.NoError(t, err)

		for _, actor := range []*directory.Actor{f.admin, f.acmeOwner, f.acmeMember, f.globexOwner} {
			available, err := engine.ListAvailableModules(ctx, actor.ID)
			require.NoError(t, err)
			availableSlugs := make(map[string]bool, len(available))
			for _, m := range available {
				availableSlugs[m.Slug] = true
			}
			for _, m := range all {
				ok, err := engine.CanAccessModule(ctx, actor.ID, m.Slug)
				require.NoError(t, err)
				assert.Equal(t, ok, availableSlugs[m.Slug], "actor %s module %s", actor.Username, m.Slug)
			}
		}
	})

	t.Run("unknown actor gets empty list", func(t *testing.T) {
		f := newFixture(t)
		engine := NewEngine(f.store)

		modules, err := engine.ListAvailableModules(ctx, 99999)
		require.NoError(t, err)
		assert.Empty(t, modules)
	})
}
