package notes

import "time"

// Note is a tenant-scoped text entry. Notes never leak across tenants: every
// store query is keyed by tenant ID in addition to the note ID.
type Note struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
