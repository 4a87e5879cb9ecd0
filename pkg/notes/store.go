package notes

import (
	"context"
	"errors"
)

// ErrNoteNotFound is returned when a note does not exist within the caller's
// tenant. A note that exists under another tenant is indistinguishable from
// one that does not exist at all.
var ErrNoteNotFound = errors.New("notes: note not found")

// Store is the persistence boundary for notes.
type Store interface {
	CreateNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, tenantID, id int64) (*Note, error)
	ListNotes(ctx context.Context, tenantID int64) ([]*Note, error)
	UpdateNote(ctx context.Context, note *Note) error
	DeleteNote(ctx context.Context, tenantID, id int64) error
}
