package directory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleManifest declares the feature modules installed in a deployment.
// The manifest is applied at startup; module slugs are immutable once created,
// so re-applying an unchanged manifest is a no-op.
type ModuleManifest struct {
	Modules []ModuleDefinition `yaml:"modules"`
}

// ModuleDefinition is a single manifest entry.
type ModuleDefinition struct {
	Name   string `yaml:"name"`
	Slug   string `yaml:"slug"`
	Active *bool  `yaml:"active,omitempty"`
}

// LoadModuleManifest reads and parses a YAML module manifest.
func LoadModuleManifest(path string) (*ModuleManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module manifest: %w", err)
	}
	var manifest ModuleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse module manifest: %w", err)
	}
	for i, def := range manifest.Modules {
		if def.Slug == "" {
			return nil, fmt.Errorf("module manifest entry %d is missing a slug", i)
		}
		if def.Name == "" {
			return nil, fmt.Errorf("module manifest entry %q is missing a name", def.Slug)
		}
	}
	return &manifest, nil
}

// DefaultModuleManifest returns the catalog shipped with the platform.
func DefaultModuleManifest() *ModuleManifest {
	return &ModuleManifest{
		Modules: []ModuleDefinition{
			{Name: "Text Notes", Slug: "notes"},
			{Name: "AI Assistant", Slug: "assistant"},
		},
	}
}

// SeedModules ensures every manifest entry exists in the catalog. Existing
// modules keep their active flag unless the manifest pins one explicitly.
func SeedModules(ctx context.Context, store Store, manifest *ModuleManifest) error {
	for _, def := range manifest.Modules {
		existing, err := store.GetModuleBySlug(ctx, def.Slug)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to look up module %q: %w", def.Slug, err)
		}
		if existing == nil {
			module := &Module{Name: def.Name, Slug: def.Slug, IsActive: true}
			if def.Active != nil {
				module.IsActive = *def.Active
			}
			if err := store.CreateModule(ctx, module); err != nil {
				return fmt.Errorf("failed to create module %q: %w", def.Slug, err)
			}
			continue
		}
		if def.Active != nil && existing.IsActive != *def.Active {
			if err := store.SetModuleActive(ctx, existing.ID, *def.Active); err != nil {
				return fmt.Errorf("failed to toggle module %q: %w", def.Slug, err)
			}
		}
	}
	return nil
}
