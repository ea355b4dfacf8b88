// Package models defines the domain types for Gebo.
package models

import "time"

// Note represents a stored note. The graph engine only ever reads ID,
// OwnerID, Slug, and Content; everything else belongs to the note store.
type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DirectoryEntry is one (id, slug) pair from an owner's note directory,
// the namespace that references are resolved against.
type DirectoryEntry struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// Edge is a directed, deduplicated link between two notes, derived
// entirely from the source note's current content. Label records the raw
// reference text that produced the edge, for diagnostics only.
type Edge struct {
	SourceNoteID string `json:"source_note_id"`
	TargetNoteID string `json:"target_note_id"`
	Label        string `json:"label,omitempty"`
}
