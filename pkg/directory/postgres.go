package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateActor inserts a new actor, enforcing the role/tenant invariant
func (s *PostgresStore) CreateActor(ctx context.Context, actor *Actor) error {
	if !actor.Role.Valid() {
		return fmt.Errorf("invalid role %q", actor.Role)
	}
	if actor.Role.RequiresTenant() && actor.TenantID == nil {
		return fmt.Errorf("role %s requires a tenant", actor.Role)
	}
	if actor.Role == RoleSystemAdmin && actor.TenantID != nil {
		return fmt.Errorf("role %s must not carry a tenant", actor.Role)
	}

	query := `
		INSERT INTO actors (username, email, role, tenant_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		actor.Username, actor.Email, actor.Role, actor.TenantID, actor.IsActive, now, now,
	).Scan(&actor.ID)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}
	actor.CreatedAt = now
	actor.UpdatedAt = now
	return nil
}

// GetActor retrieves an actor by ID
func (s *PostgresStore) GetActor(ctx context.Context, id int64) (*Actor, error) {
	query := `
		SELECT id, username, email, role, tenant_id, is_active, created_at, updated_at
		FROM actors
		WHERE id = $1
	`
	return s.scanActor(s.db.QueryRowContext(ctx, query, id))
}

// GetActorByUsername retrieves an actor by its unique username
func (s *PostgresStore) GetActorByUsername(ctx context.Context, username string) (*Actor, error) {
	query := `
		SELECT id, username, email, role, tenant_id, is_active, created_at, updated_at
		FROM actors
		WHERE username = $1
	`
	return s.scanActor(s.db.QueryRowContext(ctx, query, username))
}

// ListActorsByTenant returns all actors belonging to a tenant
func (s *PostgresStore) ListActorsByTenant(ctx context.Context, tenantID int64) ([]*Actor, error) {
	query := `
		SELECT id, username, email, role, tenant_id, is_active, created_at, updated_at
		FROM actors
		WHERE tenant_id = $1
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []*Actor
	for rows.Next() {
		actor, err := s.scanActorRow(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, rows.Err()
}

// SetActorActive toggles the actor's active flag (actors are never hard-deleted)
func (s *PostgresStore) SetActorActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE actors SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update actor: %w", err)
	}
	return requireRowAffected(result)
}

// CreateTenant inserts a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	query := `
		INSERT INTO tenants (name, slug, owner_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		tenant.Name, tenant.Slug, tenant.OwnerID, tenant.IsActive, now, now,
	).Scan(&tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	return nil
}

// GetTenant retrieves a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	query := `
		SELECT id, name, slug, owner_id, is_active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, id))
}

// GetTenantBySlug retrieves a tenant by its unique slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	query := `
		SELECT id, name, slug, owner_id, is_active, created_at, updated_at
		FROM tenants
		WHERE slug = $1
	`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

// ListTenants returns all tenants
func (s *PostgresStore) ListTenants(ctx context.Context) ([]*Tenant, error) {
	query := `
		SELECT id, name, slug, owner_id, is_active, created_at, updated_at
		FROM tenants
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		var t Tenant
		var ownerID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &ownerID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		t.OwnerID = ownerID.Int64
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// SetTenantActive toggles the tenant's active flag
func (s *PostgresStore) SetTenantActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return requireRowAffected(result)
}

// CreateModule inserts a new module
func (s *PostgresStore) CreateModule(ctx context.Context, module *Module) error {
	query := `
		INSERT INTO modules (name, slug, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		module.Name, module.Slug, module.IsActive, now, now,
	).Scan(&module.ID)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	module.CreatedAt = now
	module.UpdatedAt = now
	return nil
}

// GetModule retrieves a module by ID
func (s *PostgresStore) GetModule(ctx context.Context, id int64) (*Module, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM modules
		WHERE id = $1
	`
	return s.scanModule(s.db.QueryRowContext(ctx, query, id))
}

// GetModuleBySlug retrieves a module by its immutable slug
func (s *PostgresStore) GetModuleBySlug(ctx context.Context, slug string) (*Module, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM modules
		WHERE slug = $1
	`
	return s.scanModule(s.db.QueryRowContext(ctx, query, slug))
}

// ListModules returns modules, optionally restricted to active ones
func (s *PostgresStore) ListModules(ctx context.Context, activeOnly bool) ([]*Module, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM modules
	`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY slug ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, &m)
	}
	return modules, rows.Err()
}

// SetModuleActive toggles the module's active flag (global kill switch)
func (s *PostgresStore) SetModuleActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE modules SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	return requireRowAffected(result)
}

// UpsertTenantGrant creates or updates the single grant row for a
// (tenant, module) pair. The unique constraint makes concurrent upserts for
// the same pair resolve last-write-wins.
func (s *PostgresStore) UpsertTenantGrant(ctx context.Context, grant *TenantModuleGrant) error {
	query := `
		INSERT INTO tenant_module_grants (tenant_id, module_id, enabled, granted_by, granted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, module_id)
		DO UPDATE SET enabled = EXCLUDED.enabled, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at
		RETURNING id, granted_at
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		grant.TenantID, grant.ModuleID, grant.Enabled, grant.GrantedBy, now, now,
	).Scan(&grant.ID, &grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant grant: %w", err)
	}
	grant.UpdatedAt = now
	return nil
}

// GetTenantGrant retrieves the grant row for a (tenant, module) pair
func (s *PostgresStore) GetTenantGrant(ctx context.Context, tenantID, moduleID int64) (*TenantModuleGrant, error) {
	query := `
		SELECT id, tenant_id, module_id, enabled, granted_by, granted_at, updated_at
		FROM tenant_module_grants
		WHERE tenant_id = $1 AND module_id = $2
	`
	var g TenantModuleGrant
	var grantedBy sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, tenantID, moduleID).Scan(
		&g.ID, &g.TenantID, &g.ModuleID, &g.Enabled, &grantedBy, &g.GrantedAt, &g.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant grant: %w", err)
	}
	if grantedBy.Valid {
		id := grantedBy.Int64
		g.GrantedBy = &id
	}
	return &g, nil
}

// ListTenantGrants returns all grant rows for a tenant
func (s *PostgresStore) ListTenantGrants(ctx context.Context, tenantID int64) ([]*TenantModuleGrant, error) {
	query := `
		SELECT id, tenant_id, module_id, enabled, granted_by, granted_at, updated_at
		FROM tenant_module_grants
		WHERE tenant_id = $1
		ORDER BY module_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant grants: %w", err)
	}
	defer rows.Close()

	var grants []*TenantModuleGrant
	for rows.Next() {
		var g TenantModuleGrant
		var grantedBy sql.NullInt64
		if err := rows.Scan(&g.ID, &g.TenantID, &g.ModuleID, &g.Enabled, &grantedBy, &g.GrantedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant grant: %w", err)
		}
		if grantedBy.Valid {
			id := grantedBy.Int64
			g.GrantedBy = &id
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// UpsertActorPermission creates or replaces the permission row for an
// (actor, module) pair. The permission set and granted_by audit field are
// overwritten, not merged.
func (s *PostgresStore) UpsertActorPermission(ctx context.Context, perm *ActorModulePermission) error {
	if len(perm.Permissions) == 0 {
		return fmt.Errorf("permission set must not be empty; delete the row instead")
	}

	permissionsJSON, err := json.Marshal(perm.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO actor_module_permissions (actor_id, module_id, permissions, granted_by, granted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (actor_id, module_id)
		DO UPDATE SET permissions = EXCLUDED.permissions, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at
		RETURNING id, granted_at
	`
	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		perm.ActorID, perm.ModuleID, string(permissionsJSON), perm.GrantedBy, now, now,
	).Scan(&perm.ID, &perm.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert actor permission: %w", err)
	}
	perm.UpdatedAt = now
	return nil
}

// GetActorPermission retrieves the permission row for an (actor, module) pair
func (s *PostgresStore) GetActorPermission(ctx context.Context, actorID, moduleID int64) (*ActorModulePermission, error) {
	query := `
		SELECT id, actor_id, module_id, permissions, granted_by, granted_at, updated_at
		FROM actor_module_permissions
		WHERE actor_id = $1 AND module_id = $2
	`
	var p ActorModulePermission
	var permissionsJSON string
	err := s.db.QueryRowContext(ctx, query, actorID, moduleID).Scan(
		&p.ID, &p.ActorID, &p.ModuleID, &permissionsJSON, &p.GrantedBy, &p.GrantedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get actor permission: %w", err)
	}
	if err := json.Unmarshal([]byte(permissionsJSON), &p.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	return &p, nil
}

// ListActorPermissions returns all permission rows for an actor
func (s *PostgresStore) ListActorPermissions(ctx context.Context, actorID int64) ([]*ActorModulePermission, error) {
	query := `
		SELECT id, actor_id, module_id, permissions, granted_by, granted_at, updated_at
		FROM actor_module_permissions
		WHERE actor_id = $1
		ORDER BY module_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actor permissions: %w", err)
	}
	defer rows.Close()

	var perms []*ActorModulePermission
	for rows.Next() {
		var p ActorModulePermission
		var permissionsJSON string
		if err := rows.Scan(&p.ID, &p.ActorID, &p.ModuleID, &permissionsJSON, &p.GrantedBy, &p.GrantedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan actor permission: %w", err)
		}
		if err := json.Unmarshal([]byte(permissionsJSON), &p.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
		perms = append(perms, &p)
	}
	return perms, rows.Err()
}

// DeleteActorPermission removes the permission row for an (actor, module)
// pair. Deleting a missing row is not an error (revoke is idempotent).
func (s *PostgresStore) DeleteActorPermission(ctx context.Context, actorID, moduleID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM actor_module_permissions WHERE actor_id = $1 AND module_id = $2`,
		actorID, moduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete actor permission: %w", err)
	}
	return nil
}

// CreateAPIToken inserts a new API token row
func (s *PostgresStore) CreateAPIToken(ctx context.Context, token *APIToken) error {
	query := `
		INSERT INTO api_tokens (actor_id, token_hash, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		token.ActorID, token.TokenHash, token.Name, token.ExpiresAt, now,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to create api token: %w", err)
	}
	token.CreatedAt = now
	return nil
}

// GetAPITokenByHash retrieves a token row by its hash
func (s *PostgresStore) GetAPITokenByHash(ctx context.Context, tokenHash string) (*APIToken, error) {
	query := `
		SELECT id, actor_id, token_hash, name, expires_at, created_at, revoked_at
		FROM api_tokens
		WHERE token_hash = $1
	`
	var t APIToken
	var expiresAt, revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.ActorID, &t.TokenHash, &t.Name, &expiresAt, &t.CreatedAt, &revokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api token: %w", err)
	}
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// RevokeAPIToken marks a token revoked
func (s *PostgresStore) RevokeAPIToken(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api token: %w", err)
	}
	return requireRowAffected(result)
}

func (s *PostgresStore) scanActor(row *sql.Row) (*Actor, error) {
	var a Actor
	var email sql.NullString
	var tenantID sql.NullInt64
	err := row.Scan(&a.ID, &a.Username, &email, &a.Role, &tenantID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	a.Email = email.String
	if tenantID.Valid {
		id := tenantID.Int64
		a.TenantID = &id
	}
	return &a, nil
}

func (s *PostgresStore) scanActorRow(rows *sql.Rows) (*Actor, error) {
	var a Actor
	var email sql.NullString
	var tenantID sql.NullInt64
	err := rows.Scan(&a.ID, &a.Username, &email, &a.Role, &tenantID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan actor: %w", err)
	}
	a.Email = email.String
	if tenantID.Valid {
		id := tenantID.Int64
		a.TenantID = &id
	}
	return &a, nil
}

func (s *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	var ownerID sql.NullInt64
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &ownerID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	t.OwnerID = ownerID.Int64
	return &t, nil
}

func (s *PostgresStore) scanModule(row *sql.Row) (*Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return &m, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
