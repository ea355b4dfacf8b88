// Package notestore implements the note store the graph engine consumes:
// notes keyed by id, owner id, slug, and content, plus the per-owner
// directory query used for reference resolution.
package notestore

import "github.com/starford/gebo/internal/models"

// Provider is the boundary to the note store. The engine depends on this
// interface rather than the concrete SQLite type.
type Provider interface {
	// Get returns the note with the given id, or apperr.ErrNotFound.
	Get(id string) (*models.Note, error)
	// GetBySlug returns the owner's note with the given slug, or apperr.ErrNotFound.
	GetBySlug(ownerID, slug string) (*models.Note, error)
	// Directory returns the owner's (id, slug) pairs ordered by slug, so
	// first-match resolution is deterministic.
	Directory(ownerID string) ([]models.DirectoryEntry, error)
	// Insert stores a new note; apperr.ErrAlreadyExists on slug collision.
	Insert(n *models.Note) error
	// UpdateContent replaces a note's content and checksum.
	UpdateContent(id, content, cs string) error
	// Delete removes the note, or apperr.ErrNotFound.
	Delete(id string) error
	// List returns the owner's notes with pagination and the total count.
	List(ownerID string, limit, offset int) ([]models.Note, int, error)
	Close() error
}

// Verify *DB satisfies Provider at compile time.
var _ Provider = (*DB)(nil)
