package notes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/directory"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing
)

func setupTestDB(t *testing.T) *sql.DB {
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
		CREATE TABLE notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

type testEnv struct {
	service *Service

	admin      *directory.Actor
	owner      *directory.Actor
	member     *directory.Actor
	outsider   *directory.Actor
	tenant     *directory.Tenant
	outsideTen *directory.Tenant
}

// newTestEnv stands up the notes module for one tenant: an enabled tenant
// grant, a member holding read+write (but not delete), and a second tenant
// with its own grant for isolation checks.
func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	ctx := context.Background()

	dir := directory.NewPostgresStore(db)
	engine := authz.NewEngine(dir)

	env := &testEnv{service: NewService(NewPostgresStore(db), engine)}

	env.admin = &directory.Actor{Username: "root", Role: directory.RoleSystemAdmin, IsActive: true}
	require.NoError(t, dir.CreateActor(ctx, env.admin))

	var err error
	env.tenant, env.owner, err = dir.ProvisionTenant(ctx, directory.ProvisionTenantRequest{
		Name: "Acme", OwnerUsername: "alice",
	})
	require.NoError(t, err)
	env.member, err = dir.ProvisionMember(ctx, env.tenant.ID, "bob", "")
	require.NoError(t, err)

	env.outsideTen, env.outsider, err = dir.ProvisionTenant(ctx, directory.ProvisionTenantRequest{
		Name: "Globex", OwnerUsername: "hank",
	})
	require.NoError(t, err)

	module := &directory.Module{Name: "Text Notes", Slug: ModuleSlug, IsActive: true}
	require.NoError(t, dir.CreateModule(ctx, module))

	for _, tenantID := range []int64{env.tenant.ID, env.outsideTen.ID} {
		require.NoError(t, dir.UpsertTenantGrant(ctx, &directory.TenantModuleGrant{
			TenantID: tenantID, ModuleID: module.ID, Enabled: true, GrantedBy: &env.admin.ID,
		}))
	}

	require.NoError(t, dir.UpsertActorPermission(ctx, &directory.ActorModulePermission{
		ActorID:     env.member.ID,
		ModuleID:    module.ID,
		Permissions: []directory.Permission{directory.PermissionRead, directory.PermissionWrite},
		GrantedBy:   env.owner.ID,
	}))

	return env
}

func TestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, err := env.service.CreateNote(ctx, env.member, "Standup notes", "discussed the rollout")
	require.NoError(t, err)
	require.NotZero(t, note.ID)
	assert.Equal(t, env.tenant.ID, note.TenantID)
	assert.Equal(t, env.member.ID, note.AuthorID)

	got, err := env.service.GetNote(ctx, env.member, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup notes", got.Title)

	updated, err := env.service.UpdateNote(ctx, env.member, note.ID, "Standup notes (edited)", "rollout postponed")
	require.NoError(t, err)
	assert.Equal(t, "Standup notes (edited)", updated.Title)
	assert.Equal(t, "rollout postponed", updated.Body)

	list, err := env.service.ListNotes(ctx, env.owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Member lacks delete; owner holds it implicitly
	err = env.service.DeleteNote(ctx, env.member, note.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	require.NoError(t, env.service.DeleteNote(ctx, env.owner, note.ID))
	_, err = env.service.GetNote(ctx, env.owner, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestNoteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateNote(ctx, env.member, "   ", "body")
	assert.ErrorIs(t, err, ErrValidation)

	note, err := env.service.CreateNote(ctx, env.member, "ok", "")
	require.NoError(t, err)

	_, err = env.service.UpdateNote(ctx, env.member, note.ID, "", "body")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSystemAdminExcludedFromNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, err := env.service.CreateNote(ctx, env.owner, "secret plan", "tenant eyes only")
	require.NoError(t, err)

	// Admin reach stops at configuration; business data stays closed
	_, err = env.service.GetNote(ctx, env.admin, note.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	_, err = env.service.ListNotes(ctx, env.admin)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	_, err = env.service.CreateNote(ctx, env.admin, "x", "y")
	assert.ErrorIs(t, err, authz.ErrForbidden)
	err = env.service.DeleteNote(ctx, env.admin, note.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestNoteTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, err := env.service.CreateNote(ctx, env.owner, "acme only", "")
	require.NoError(t, err)

	// The outsider's reads are scoped to their own tenant
	_, err = env.service.GetNote(ctx, env.outsider, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)

	list, err := env.service.ListNotes(ctx, env.outsider)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = env.service.DeleteNote(ctx, env.outsider, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}
