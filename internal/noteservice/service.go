// Package noteservice coordinates the note store, the backlink engine,
// and display-time rendering for the API layer.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gosimple/slug"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/notestore"
	"github.com/starford/gebo/internal/render"
)

// NoteDetail is the full representation of a note, enriched with
// display-time links and persisted backlinks.
type NoteDetail struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title,omitempty"`
	Content     string              `json:"content"`
	Rendered    string              `json:"rendered"`
	Checksum    string              `json:"checksum"`
	LinkedNotes []render.LinkedNote `json:"linked_notes"`
	Backlinks   []models.Edge       `json:"backlinks"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncStatus reports the backlink synchronization outcome of a save. A
// save can succeed while synchronization fails; the graph then stays
// stale until the next successful synchronization.
type SyncStatus struct {
	Synced bool                 `json:"synced"`
	Error  string               `json:"error,omitempty"`
	Result *backlink.SyncResult `json:"result,omitempty"`
}

// Service coordinates note storage and the backlink engine.
type Service struct {
	notes notestore.Provider
	links *backlink.Service
}

// NewService creates a new note service.
func NewService(notes notestore.Provider, links *backlink.Service) *Service {
	return &Service{notes: notes, links: links}
}

// CreateNote stores a new note and synchronizes its backlinks
// best-effort. When slugStr is empty the slug is derived from the title.
func (s *Service) CreateNote(ctx context.Context, ownerID, slugStr, title, content string) (*NoteDetail, *SyncStatus, error) {
	if slugStr == "" {
		slugStr = slug.Make(title)
	}
	if slugStr == "" {
		return nil, nil, fmt.Errorf("noteservice: slug or title required")
	}

	now := time.Now().UTC()
	n := &models.Note{
		ID:        notestore.NewID(),
		OwnerID:   ownerID,
		Slug:      slugStr,
		Title:     title,
		Content:   content,
		Checksum:  notestore.Checksum(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Insert(n); err != nil {
		return nil, nil, err
	}

	status := s.synchronize(ctx, n)
	detail, err := s.buildDetail(ctx, n)
	if err != nil {
		return nil, status, err
	}
	return detail, status, nil
}

// UpdateNote replaces a note's content with optimistic concurrency
// (If-Match checksum) and re-synchronizes its backlinks best-effort.
func (s *Service) UpdateNote(ctx context.Context, id, content, ifMatch string) (*NoteDetail, *SyncStatus, error) {
	n, err := s.notes.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if ifMatch != "" && ifMatch != n.Checksum {
		return nil, nil, apperr.ErrConflict
	}
	if err := s.notes.UpdateContent(id, content, notestore.Checksum(content)); err != nil {
		return nil, nil, err
	}
	n.Content = content
	n.Checksum = notestore.Checksum(content)

	status := s.synchronize(ctx, n)
	detail, err := s.buildDetail(ctx, n)
	if err != nil {
		return nil, status, err
	}
	return detail, status, nil
}

// DeleteNote removes a note and every edge touching it, in both
// directions, so edges never outlive either endpoint.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.notes.Delete(id); err != nil {
		return err
	}
	return s.links.RemoveNote(ctx, id)
}

// GetNote returns a note with render-time links and persisted backlinks.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	n, err := s.notes.Get(id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, n)
}

// ListNotes returns the owner's notes with pagination.
func (s *Service) ListNotes(_ context.Context, ownerID string, limit, offset int) ([]NoteListItem, int, error) {
	rows, total, err := s.notes.List(ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, n := range rows {
		items[i] = NoteListItem{
			ID:        n.ID,
			Slug:      n.Slug,
			Title:     n.Title,
			Checksum:  n.Checksum,
			UpdatedAt: n.UpdatedAt,
		}
	}
	return items, total, nil
}

// Synchronize recomputes the note's outgoing edges from content. Exposed
// for the sync endpoint and the ingest watcher.
func (s *Service) Synchronize(ctx context.Context, noteID, ownerID, content string) (*backlink.SyncResult, error) {
	return s.links.Synchronize(ctx, noteID, ownerID, content)
}

// Store returns the underlying note store, for read paths that bypass the
// service (ingest checksum skip).
func (s *Service) Store() notestore.Provider {
	return s.notes
}

// synchronize runs backlink synchronization without failing the save.
func (s *Service) synchronize(ctx context.Context, n *models.Note) *SyncStatus {
	res, err := s.links.Synchronize(ctx, n.ID, n.OwnerID, n.Content)
	if err != nil {
		slog.Warn("note saved but backlink sync failed",
			slog.String("note_id", n.ID),
			slog.String("error", err.Error()))
		return &SyncStatus{Synced: false, Error: err.Error()}
	}
	return &SyncStatus{Synced: true, Result: res}
}

// buildDetail assembles the display view: render-time linked notes and
// rewritten content come from the current content + directory, persisted
// incoming edges from the graph store.
func (s *Service) buildDetail(ctx context.Context, n *models.Note) (*NoteDetail, error) {
	dir, err := s.notes.Directory(n.OwnerID)
	if err != nil {
		return nil, err
	}
	backlinks, err := s.links.Incoming(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	linked := render.LinkedNotes(n.Content, n.ID, dir)
	if linked == nil {
		linked = []render.LinkedNote{}
	}
	if backlinks == nil {
		backlinks = []models.Edge{}
	}
	return &NoteDetail{
		ID:          n.ID,
		OwnerID:     n.OwnerID,
		Slug:        n.Slug,
		Title:       n.Title,
		Content:     n.Content,
		Rendered:    render.Rewrite(n.Content, n.ID, dir),
		Checksum:    n.Checksum,
		LinkedNotes: linked,
		Backlinks:   backlinks,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}, nil
}
