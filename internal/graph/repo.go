package graph

import (
	"fmt"
	"strings"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/reference"
)

// ReplaceOutgoing replaces the entire outgoing edge set for a note inside a
// single transaction, so readers never observe the transient empty-edge
// state between delete and insert. Individual insert failures do not abort
// sibling inserts; the failed target ids are returned so callers can retry
// precisely. Prior edges are unconditionally discarded, so the end state
// is fully determined by refs.
func (db *DB) ReplaceOutgoing(noteID string, refs []reference.Resolved) (inserted []models.Edge, failed []string, err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM edges WHERE source_note_id = ?`, noteID); err != nil {
		return nil, nil, fmt.Errorf("graph: delete outgoing: %w", err)
	}

	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (source_note_id, target_note_id, label) VALUES (?, ?, ?)`)
		if err != nil {
			return nil, nil, fmt.Errorf("graph: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, execErr := stmt.Exec(noteID, r.TargetID, r.Label); execErr != nil {
				failed = append(failed, r.TargetID)
				continue
			}
			inserted = append(inserted, models.Edge{
				SourceNoteID: noteID,
				TargetNoteID: r.TargetID,
				Label:        r.Label,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("graph: commit replace: %w", err)
	}
	return inserted, failed, nil
}

// Outgoing returns all edges whose source is the given note.
func (db *DB) Outgoing(noteID string) ([]models.Edge, error) {
	return db.queryEdges(`SELECT source_note_id, target_note_id, label FROM edges WHERE source_note_id = ?`, noteID)
}

// Incoming returns all edges whose target is the given note.
func (db *DB) Incoming(noteID string) ([]models.Edge, error) {
	return db.queryEdges(`SELECT source_note_id, target_note_id, label FROM edges WHERE target_note_id = ?`, noteID)
}

// RemoveNote deletes every edge touching the note, in both directions.
// Called when a note is deleted so edges never block or outlive either
// endpoint.
func (db *DB) RemoveNote(noteID string) error {
	if _, err := db.conn.Exec(`DELETE FROM edges WHERE source_note_id = ? OR target_note_id = ?`, noteID, noteID); err != nil {
		return fmt.Errorf("graph: remove note edges: %w", err)
	}
	return nil
}

// CountIncoming returns the incoming-edge count per target for the given
// target ids, counting edges regardless of source owner. Targets with no
// incoming edges are absent from the result.
func (db *DB) CountIncoming(targetIDs []string) (map[string]int, error) {
	if len(targetIDs) == 0 {
		return map[string]int{}, nil
	}
	query := fmt.Sprintf(
		`SELECT target_note_id, COUNT(*) FROM edges WHERE target_note_id IN (%s) GROUP BY target_note_id`,
		placeholders(len(targetIDs)))
	rows, err := db.conn.Query(query, toArgs(targetIDs)...)
	if err != nil {
		return nil, fmt.Errorf("graph: count incoming: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int, len(targetIDs))
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// EdgesFromSources returns all edges whose source is among the given note
// ids. Targets outside the set still appear as edge endpoints.
func (db *DB) EdgesFromSources(sourceIDs []string) ([]models.Edge, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT source_note_id, target_note_id, label FROM edges WHERE source_note_id IN (%s)`,
		placeholders(len(sourceIDs)))
	return db.queryEdges(query, toArgs(sourceIDs)...)
}

func (db *DB) queryEdges(query string, args ...any) ([]models.Edge, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: query edges: %w", err)
	}
	defer rows.Close()

	var out []models.Edge
	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.SourceNoteID, &e.TargetNoteID, &e.Label); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
