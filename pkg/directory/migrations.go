package directory

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all directory migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create tenants and actors tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenants (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					owner_id BIGINT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS actors (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255),
					role VARCHAR(50) NOT NULL,
					tenant_id BIGINT REFERENCES tenants(id) ON DELETE RESTRICT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK (
						(role = 'system_admin' AND tenant_id IS NULL) OR
						(role IN ('tenant_owner', 'tenant_member') AND tenant_id IS NOT NULL)
					)
				);

				CREATE INDEX idx_actors_tenant_id ON actors(tenant_id);
				CREATE INDEX idx_actors_role ON actors(role);
			`,
		},
		{
			Version:     2,
			Description: "Create modules table",
			SQL: `
				CREATE TABLE IF NOT EXISTS modules (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_modules_is_active ON modules(is_active);
			`,
		},
		{
			Version:     3,
			Description: "Create tenant_module_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenant_module_grants (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
					enabled BOOLEAN NOT NULL DEFAULT TRUE,
					granted_by BIGINT REFERENCES actors(id) ON DELETE SET NULL,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(tenant_id, module_id)
				);

				CREATE INDEX idx_tenant_module_grants_tenant_id ON tenant_module_grants(tenant_id);
				CREATE INDEX idx_tenant_module_grants_module_id ON tenant_module_grants(module_id);
			`,
		},
		{
			Version:     4,
			Description: "Create actor_module_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS actor_module_permissions (
					id BIGSERIAL PRIMARY KEY,
					actor_id BIGINT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
					module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
					permissions JSONB NOT NULL DEFAULT '[]',
					granted_by BIGINT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(actor_id, module_id)
				);

				CREATE INDEX idx_actor_module_permissions_actor_id ON actor_module_permissions(actor_id);
				CREATE INDEX idx_actor_module_permissions_module_id ON actor_module_permissions(module_id);
			`,
		},
		{
			Version:     5,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					actor_id BIGINT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					name VARCHAR(255) NOT NULL,
					expires_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					revoked_at TIMESTAMP
				);

				CREATE INDEX idx_api_tokens_actor_id ON api_tokens(actor_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS directory_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM directory_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO directory_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
