package assistant

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

// EnsureSchema creates the assistant tables if they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS assistant_conversations (
			id BIGSERIAL PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			creator_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assistant_conversations_tenant
			ON assistant_conversations(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS assistant_messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assistant_messages_conversation
			ON assistant_messages(conversation_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create assistant schema: %w", err)
		}
	}
	return nil
}

// CreateConversation inserts a new conversation
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	query := `
		INSERT INTO assistant_conversations (tenant_id, creator_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		conv.TenantID, conv.CreatorID, conv.Title, now, now,
	).Scan(&conv.ID)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	conv.CreatedAt = now
	conv.UpdatedAt = now
	return nil
}

// GetConversation retrieves a conversation by ID within the tenant
func (s *PostgresStore) GetConversation(ctx context.Context, tenantID, id int64) (*Conversation, error) {
	query := `
		SELECT id, tenant_id, creator_id, title, created_at, updated_at
		FROM assistant_conversations
		WHERE tenant_id = $1 AND id = $2
	`
	conv := &Conversation{}
	err := s.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&conv.ID, &conv.TenantID, &conv.CreatorID, &conv.Title,
		&conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns all conversations in the tenant, newest first
func (s *PostgresStore) ListConversations(ctx context.Context, tenantID int64) ([]*Conversation, error) {
	query := `
		SELECT id, tenant_id, creator_id, title, created_at, updated_at
		FROM assistant_conversations
		WHERE tenant_id = $1
		ORDER BY updated_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var result []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		if err := rows.Scan(
			&conv.ID, &conv.TenantID, &conv.CreatorID, &conv.Title,
			&conv.CreatedAt, &conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

// DeleteConversation removes a conversation and its messages
func (s *PostgresStore) DeleteConversation(ctx context.Context, tenantID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM assistant_conversations WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM assistant_messages WHERE conversation_id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	return nil
}

// AppendMessage adds a message to a conversation
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO assistant_messages (conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		msg.ConversationID, msg.Role, msg.Content, now,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	msg.CreatedAt = now

	if _, err := s.db.ExecContext(ctx,
		`UPDATE assistant_conversations SET updated_at = $1 WHERE id = $2`,
		now, msg.ConversationID,
	); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in order
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM assistant_messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var result []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
