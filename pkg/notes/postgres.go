package notes

import (
	"context"
	"database/sql"
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

// EnsureSchema creates the notes table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS notes (
			id BIGSERIAL PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			author_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_notes_tenant ON notes(tenant_id)`,
	); err != nil {
		return fmt.Errorf("failed to create notes index: %w", err)
	}
	return nil
}

// CreateNote inserts a new note
func (s *PostgresStore) CreateNote(ctx context.Context, note *Note) error {
	query := `
		INSERT INTO notes (tenant_id, author_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		note.TenantID, note.AuthorID, note.Title, note.Body, now, now,
	).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	note.CreatedAt = now
	note.UpdatedAt = now
	return nil
}

// GetNote retrieves a note by ID within the tenant
func (s *PostgresStore) GetNote(ctx context.Context, tenantID, id int64) (*Note, error) {
	query := `
		SELECT id, tenant_id, author_id, title, body, created_at, updated_at
		FROM notes
		WHERE tenant_id = $1 AND id = $2
	`
	note := &Note{}
	err := s.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&note.ID, &note.TenantID, &note.AuthorID, &note.Title, &note.Body,
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// ListNotes returns all notes belonging to the tenant, newest first
func (s *PostgresStore) ListNotes(ctx context.Context, tenantID int64) ([]*Note, error) {
	query := `
		SELECT id, tenant_id, author_id, title, body, created_at, updated_at
		FROM notes
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var result []*Note
	for rows.Next() {
		note := &Note{}
		if err := rows.Scan(
			&note.ID, &note.TenantID, &note.AuthorID, &note.Title, &note.Body,
			&note.CreatedAt, &note.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

// UpdateNote updates title and body within the tenant
func (s *PostgresStore) UpdateNote(ctx context.Context, note *Note) error {
	query := `
		UPDATE notes
		SET title = $1, body = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5
	`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		note.Title, note.Body, now, note.TenantID, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	note.UpdatedAt = now
	return nil
}

// DeleteNote removes a note within the tenant
func (s *PostgresStore) DeleteNote(ctx context.Context, tenantID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}
