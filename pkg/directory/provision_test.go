package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("creates tenant and owner together", func(t *testing.T) {
		tenant, owner, err := store.ProvisionTenant(ctx, ProvisionTenantRequest{
			Name:          "Acme Corp",
			OwnerUsername: "alice",
			OwnerEmail:    "alice@acme.test",
		})
		require.NoError(t, err)
		assert.Equal(t, "acme-corp", tenant.Slug)
		assert.Equal(t, owner.ID, tenant.OwnerID)
		assert.Equal(t, RoleTenantOwner, owner.Role)
		require.NotNil(t, owner.TenantID)
		assert.Equal(t, tenant.ID, *owner.TenantID)

		// Both rows are visible and cross-linked after commit
		gotTenant, err := store.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.ID, gotTenant.OwnerID)

		gotOwner, err := store.GetActorByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, *gotOwner.TenantID)
	})

	t.Run("explicit slug wins over generated one", func(t *testing.T) {
		tenant, _, err := store.ProvisionTenant(ctx, ProvisionTenantRequest{
			Name:          "Globex International",
			Slug:          "globex",
			OwnerUsername: "hank",
		})
		require.NoError(t, err)
		assert.Equal(t, "globex", tenant.Slug)
	})

	t.Run("validation", func(t *testing.T) {
		_, _, err := store.ProvisionTenant(ctx, ProvisionTenantRequest{OwnerUsername: "bob"})
		assert.Error(t, err)

		_, _, err = store.ProvisionTenant(ctx, ProvisionTenantRequest{Name: "No Owner"})
		assert.Error(t, err)
	})

	t.Run("duplicate owner username rolls back the tenant", func(t *testing.T) {
		_, _, err := store.ProvisionTenant(ctx, ProvisionTenantRequest{
			Name:          "Initech",
			OwnerUsername: "alice",
		})
		require.Error(t, err)

		_, err = store.GetTenantBySlug(ctx, "initech")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProvisionMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tenant, _, err := store.ProvisionTenant(ctx, ProvisionTenantRequest{
		Name:          "Acme",
		OwnerUsername: "alice",
	})
	require.NoError(t, err)

	member, err := store.ProvisionMember(ctx, tenant.ID, "bob", "bob@acme.test")
	require.NoError(t, err)
	assert.Equal(t, RoleTenantMember, member.Role)
	assert.Equal(t, tenant.ID, *member.TenantID)
	assert.True(t, member.IsActive)

	_, err = store.ProvisionMember(ctx, 99999, "carol", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ProvisionMember(ctx, tenant.ID, "   ", "")
	assert.Error(t, err)
}

func TestGenerateSlug(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  spaced   out  ", "spaced-out"},
		{"Already-Slugged", "already-slugged"},
		{"Symbols & Stuff!", "symbols-stuff"},
		{"Team42", "team42"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GenerateSlug(tc.name), "input %q", tc.name)
	}
}
