package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedModules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	manifest := DefaultModuleManifest()
	require.NoError(t, SeedModules(ctx, store, manifest))

	modules, err := store.ListModules(ctx, false)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	for _, m := range modules {
		assert.True(t, m.IsActive)
	}

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, SeedModules(ctx, store, manifest))
		modules, err := store.ListModules(ctx, false)
		require.NoError(t, err)
		assert.Len(t, modules, 2)
	})

	t.Run("does not resurrect disabled modules", func(t *testing.T) {
		notes, err := store.GetModuleBySlug(ctx, "notes")
		require.NoError(t, err)
		require.NoError(t, store.SetModuleActive(ctx, notes.ID, false))

		require.NoError(t, SeedModules(ctx, store, manifest))

		notes, err = store.GetModuleBySlug(ctx, "notes")
		require.NoError(t, err)
		assert.False(t, notes.IsActive)
	})

	t.Run("manifest pin overrides existing flag", func(t *testing.T) {
		active := true
		pinned := &ModuleManifest{Modules: []ModuleDefinition{
			{Name: "Text Notes", Slug: "notes", Active: &active},
		}}
		require.NoError(t, SeedModules(ctx, store, pinned))

		notes, err := store.GetModuleBySlug(ctx, "notes")
		require.NoError(t, err)
		assert.True(t, notes.IsActive)
	})
}

func TestLoadModuleManifest(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "modules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - name: Text Notes
    slug: notes
  - name: AI Assistant
    slug: assistant
    active: false
`), 0o644))

		manifest, err := LoadModuleManifest(path)
		require.NoError(t, err)
		require.Len(t, manifest.Modules, 2)
		assert.Nil(t, manifest.Modules[0].Active)
		require.NotNil(t, manifest.Modules[1].Active)
		assert.False(t, *manifest.Modules[1].Active)
	})

	t.Run("missing slug", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("modules:\n  - name: Orphan\n"), 0o644))

		_, err := LoadModuleManifest(path)
		assert.ErrorContains(t, err, "missing a slug")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadModuleManifest(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
