package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/noteservice"
)

// SyncRequest is the request body for the synchronization endpoint. All
// three fields are required strings; pointers distinguish a missing field
// from an empty one, since empty content is a legal way to clear edges.
type SyncRequest struct {
	NoteID  *string `json:"note_id"`
	OwnerID *string `json:"owner_id"`
	Content *string `json:"content"`
}

// Validate checks that every required field is present.
func (r SyncRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NoteID, validation.NotNil),
		validation.Field(&r.OwnerID, validation.NotNil),
		validation.Field(&r.Content, validation.NotNil),
	)
}

// SyncResponse reports the edges actually inserted, the labels that
// resolved to nothing, and the targets whose insert failed.
type SyncResponse = backlink.SyncResult

// CreateNoteRequest is the request body for creating a note. Slug is
// optional; when absent it is derived from the title.
type CreateNoteRequest struct {
	OwnerID string `json:"owner_id"`
	Slug    string `json:"slug,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Validate checks the create request.
func (r CreateNoteRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.OwnerID, validation.Required),
	); err != nil {
		return err
	}
	if r.Slug == "" && r.Title == "" {
		return validation.Errors{"slug": validation.NewError("validation_required", "slug or title is required")}
	}
	return nil
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// NoteResponse wraps a saved note with its synchronization outcome. A
// save succeeds even when synchronization fails; Sync carries the report.
type NoteResponse struct {
	Note *noteservice.NoteDetail `json:"note"`
	Sync *noteservice.SyncStatus `json:"sync"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []noteservice.NoteListItem `json:"notes"`
	Total int                        `json:"total"`
}
