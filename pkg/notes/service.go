package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/porticohq/portico/pkg/authz"
	"github.com/porticohq/portico/pkg/directory"
)

// ModuleSlug is the catalog identity of this module.
const ModuleSlug = "notes"

// ErrValidation is wrapped around input validation failures.
var ErrValidation = fmt.Errorf("notes: validation failed")

// Service implements the notes business operations. Every method begins with
// the system-admin exclusion: administrative reach stops at configuration and
// never extends into tenant data. Mutating methods additionally re-verify the
// caller's permission token with the engine, so the service stays safe even
// when called outside the HTTP gate.
type Service struct {
	store  Store
	engine *authz.Engine
}

// NewService creates the notes service
func NewService(store Store, engine *authz.Engine) *Service {
	return &Service{store: store, engine: engine}
}

// CreateNote adds a note under the actor's tenant.
func (s *Service) CreateNote(ctx context.Context, actor *directory.Actor, title, body string) (*Note, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	note := &Note{
		TenantID: *actor.TenantID,
		AuthorID: actor.ID,
		Title:    title,
		Body:     body,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// GetNote fetches one note from the actor's tenant.
func (s *Service) GetNote(ctx context.Context, actor *directory.Actor, id int64) (*Note, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionRead); err != nil {
		return nil, err
	}
	return s.store.GetNote(ctx, *actor.TenantID, id)
}

// ListNotes returns all notes in the actor's tenant.
func (s *Service) ListNotes(ctx context.Context, actor *directory.Actor) ([]*Note, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionRead); err != nil {
		return nil, err
	}
	return s.store.ListNotes(ctx, *actor.TenantID)
}

// UpdateNote rewrites a note's title and body.
func (s *Service) UpdateNote(ctx context.Context, actor *directory.Actor, id int64, title, body string) (*Note, error) {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	note := &Note{
		ID:       id,
		TenantID: *actor.TenantID,
		Title:    title,
		Body:     body,
	}
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}
	return s.store.GetNote(ctx, *actor.TenantID, id)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, actor *directory.Actor, id int64) error {
	if err := authz.DenySystemAdminData(actor); err != nil {
		return err
	}
	if err := s.requirePermission(ctx, actor, directory.PermissionDelete); err != nil {
		return err
	}
	return s.store.DeleteNote(ctx, *actor.TenantID, id)
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
