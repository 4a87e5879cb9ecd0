package directory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ProvisionTenantRequest carries the input for tenant provisioning.
type ProvisionTenantRequest struct {
	Name          string
	Slug          string
	OwnerUsername string
	OwnerEmail    string
}

// ProvisionTenant creates a tenant together with its owner actor in one
// transaction. The owner's tenant reference and the tenant's owner reference
// must agree, so neither row is useful without the other.
func (s *PostgresStore) ProvisionTenant(ctx context.Context, req ProvisionTenantRequest) (*Tenant, *Actor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("tenant name is required")
	}
	ownerUsername := strings.TrimSpace(req.OwnerUsername)
	if ownerUsername == "" {
		return nil, nil, fmt.Errorf("owner username is required")
	}
	slug := req.Slug
	if slug == "" {
		slug = GenerateSlug(name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	tenant := &Tenant{Name: name, Slug: slug, IsActive: true, CreatedAt: now, UpdatedAt: now}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tenants (name, slug, owner_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, NULL, $3, $4, $5)
		 RETURNING id`,
		tenant.Name, tenant.Slug, tenant.IsActive, now, now,
	).Scan(&tenant.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	owner := &Actor{
		Username:  ownerUsername,
		Email:     req.OwnerEmail,
		Role:      RoleTenantOwner,
		TenantID:  &tenant.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO actors (username, email, role, tenant_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		owner.Username, owner.Email, owner.Role, owner.TenantID, owner.IsActive, now, now,
	).Scan(&owner.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create owner actor: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tenants SET owner_id = $1 WHERE id = $2`,
		owner.ID, tenant.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("failed to link tenant owner: %w", err)
	}
	tenant.OwnerID = owner.ID

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit tenant provisioning: %w", err)
	}
	return tenant, owner, nil
}

// ProvisionMember creates a tenant member actor under an existing tenant.
func (s *PostgresStore) ProvisionMember(ctx context.Context, tenantID int64, username, email string) (*Actor, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	member := &Actor{
		Username: strings.TrimSpace(username),
		Email:    email,
		Role:     RoleTenantMember,
		TenantID: &tenantID,
		IsActive: true,
	}
	if member.Username == "" {
		return nil, fmt.Errorf("member username is required")
	}
	if err := s.CreateActor(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// GenerateSlug derives a URL-safe slug from a display name.
func GenerateSlug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
