// Package render produces display-time views of note content. It re-runs
// reference extraction and resolution against the note's current content
// and the owner's directory on every call, never against the persisted
// edge set, so rendered links stay consistent with what is displayed even
// when the stored graph is stale.
package render

import (
	"fmt"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/reference"
)

// LinkedNote is one resolved reference in rendered content.
type LinkedNote struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// LinkedNotes returns the notes the content references, resolved against
// the directory, deduplicated, in first-seen order.
func LinkedNotes(content, selfID string, dir []models.DirectoryEntry) []LinkedNote {
	resolved := reference.ResolveAll(reference.ExtractLabels(content), selfID, dir)
	out := make([]LinkedNote, len(resolved))
	for i, r := range resolved {
		out[i] = LinkedNote{ID: r.TargetID, Label: r.Label}
	}
	return out
}

// Rewrite replaces each resolvable [[label]] occurrence with a Markdown
// link to the target note. Unresolved labels are left as written.
func Rewrite(content, selfID string, dir []models.DirectoryEntry) string {
	return reference.RewriteLabels(content, func(label string) (string, bool) {
		id, ok := reference.Resolve(label, selfID, dir)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("[%s](/notes/%s)", label, id), true
	})
}
