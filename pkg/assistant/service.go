package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/directory"
)

// ModuleSlug is the catalog identity of this module.
const ModuleSlug = "assistant"

// ErrValidation is wrapped around input validation failures.
var ErrValidation = fmt.Errorf("assistant: validation failed")

// Service implements the assistant business operations. Conversation content
// is tenant business data, so every method opens with the system-admin
// exclusion and mutating paths re-verify the caller's permission token.
type Service struct {
	store     Store
	engine    *authz.Engine
	responder Responder
}

// NewService creates the assistant service
func NewService(store Store, engine *authz.Engine, responder Responder) *Service {
	if responder == nil {
		responder = EchoResponder{}
	}
	return &Service{store: store, engine: engine, responder: responder}
}

// StartConversation opens a new thread under the actor's tenant.
func (s *Service) StartConversation(ctx context.Context, actor *directory.Actor, title string) (*Conversation, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}

	conv := &Conversation{
		TenantID:  *actor.TenantID,
		CreatorID: actor.ID,
		Title:     title,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the tenant's conversations.
func (s *Service) ListConversations(ctx context.Context, actor *directory.Actor) ([]*Conversation, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionRead); err != nil {
		return nil, err
	}
	return s.store.ListConversations(ctx, *actor.TenantID)
}

// GetConversation fetches one conversation and its messages.
func (s *Service) GetConversation(ctx context.Context, actor *directory.Actor, id int64) (*Conversation, []*Message, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionRead); err != nil {
		return nil, nil, err
	}
	conv, err := s.store.GetConversation(ctx, *actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, messages, nil
}

// SendMessage appends the user's message and the assistant's reply.
func (s *Service) SendMessage(ctx context.Context, actor *directory.Actor, conversationID int64, content string) (*Message, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionWrite); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrValidation)
	}

	// Tenant scoping happens here; message queries below are by conversation
	// ID only.
	conv, err := s.store.GetConversation(ctx, *actor.TenantID, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ConversationID: conv.ID,
		Role:           MessageRoleUser,
		Content:        content,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	reply, err := s.responder.Respond(ctx, history, content)
	if err != nil {
		return nil, fmt.Errorf("failed to produce assistant reply: %w", err)
	}

	assistantMsg := &Message{
		ConversationID: conv.ID,
		Role:           MessageRoleAssistant,
		Content:        reply,
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, actor *directory.Actor, id int64) error {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionDelete); err != nil {
		return err
	}
	return s.store.DeleteConversation(ctx, *actor.TenantID, id)
}

func (s *Service) requirePermission(ctx context.Context, actor *directory.Actor, perm directory.Permission) error {
	allowed, err := s.engine.HasPermission(ctx, actor.ID, ModuleSlug, perm)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %q permission required on module %q", authz.ErrForbidden, perm, ModuleSlug)
	}
	return nil
}
