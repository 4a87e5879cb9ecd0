package assistant

import (
	"context"
	"errors"
)

// ErrConversationNotFound is returned when a conversation does not exist
// within the caller's tenant.
var ErrConversationNotFound = errors.New("assistant: conversation not found")

// Store is the persistence boundary for conversations and messages.
type Store interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, tenantID, id int64) (*Conversation, error)
	ListConversations(ctx context.Context, tenantID int64) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, tenantID, id int64) error

	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)
}
