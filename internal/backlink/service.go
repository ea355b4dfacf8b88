// Package backlink implements the backlink graph synchronization engine:
// it derives a note's outgoing edge set from its current content and
// answers graph queries over the stored edges.
package backlink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/notestore"
	"github.com/starford/gebo/internal/reference"
)

// EdgeStore defines the edge-store operations the engine needs. Consumers
// depend on this interface rather than the concrete *graph.DB to
// facilitate testing with mocks.
type EdgeStore interface {
	ReplaceOutgoing(noteID string, refs []reference.Resolved) (inserted []models.Edge, failed []string, err error)
	Outgoing(noteID string) ([]models.Edge, error)
	Incoming(noteID string) ([]models.Edge, error)
	RemoveNote(noteID string) error
	CountIncoming(targetIDs []string) (map[string]int, error)
	EdgesFromSources(sourceIDs []string) ([]models.Edge, error)
}

// Verify *graph.DB satisfies EdgeStore at compile time.
var _ EdgeStore = (*graph.DB)(nil)

// Service coordinates the note directory and the edge store.
type Service struct {
	notes notestore.Provider
	edges EdgeStore
}

// NewService creates a new backlink service.
func NewService(notes notestore.Provider, edges EdgeStore) *Service {
	return &Service{notes: notes, edges: edges}
}

// SyncResult reports the outcome of one synchronization call.
type SyncResult struct {
	Inserted   []models.Edge `json:"inserted"`
	Unresolved []string      `json:"unresolved"`
	Failed     []string      `json:"failed"`
}

// Synchronize recomputes and replaces the note's outgoing edge set from
// content. Prior edges are unconditionally discarded, so the end state is
// fully determined by content and the call is idempotent. The directory
// fetch and the edge replace are the only store interactions; either
// failing aborts with the stage identified and no further mutation.
// Per-edge insert failures do not abort sibling inserts; they are logged
// and reported in Failed so callers can retry precisely.
func (s *Service) Synchronize(_ context.Context, noteID, ownerID, content string) (*SyncResult, error) {
	n, err := s.notes.Get(noteID)
	if err != nil {
		return nil, err
	}
	if n.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}

	dir, err := s.notes.Directory(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDirectoryFetch, err)
	}

	labels := reference.ExtractLabels(content)
	resolved := reference.ResolveAll(labels, noteID, dir)
	unresolved := unresolvedLabels(labels, noteID, dir)

	inserted, failed, err := s.edges.ReplaceOutgoing(noteID, resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEdgeReplace, err)
	}
	for _, target := range failed {
		slog.Warn("sync: edge insert failed",
			slog.String("source", noteID),
			slog.String("target", target))
	}

	return &SyncResult{
		Inserted:   nonNilEdges(inserted),
		Unresolved: unresolved,
		Failed:     nonNilStrings(failed),
	}, nil
}

// unresolvedLabels returns the labels that resolve to nothing, deduplicated,
// first-seen order.
func unresolvedLabels(labels []string, selfID string, dir []models.DirectoryEntry) []string {
	seen := make(map[string]struct{}, len(labels))
	out := []string{}
	for _, label := range labels {
		if _, ok := reference.Resolve(label, selfID, dir); ok {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// Outgoing returns all edges whose source is the given note.
func (s *Service) Outgoing(_ context.Context, noteID string) ([]models.Edge, error) {
	return s.edges.Outgoing(noteID)
}

// Incoming returns all edges whose target is the given note.
func (s *Service) Incoming(_ context.Context, noteID string) ([]models.Edge, error) {
	return s.edges.Incoming(noteID)
}

// RankedNote is one entry in a most-referenced ranking.
type RankedNote struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Incoming int    `json:"incoming"`
}

// TopReferenced ranks the owner's notes by incoming-edge count (counting
// edges regardless of source owner), descending, ties broken by slug.
// Counts are recomputed on every call; notes without incoming edges are
// omitted.
func (s *Service) TopReferenced(_ context.Context, ownerID string, n int) ([]RankedNote, error) {
	if n <= 0 {
		n = 10
	}
	dir, err := s.notes.Directory(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDirectoryFetch, err)
	}

	ids := make([]string, len(dir))
	for i, e := range dir {
		ids[i] = e.ID
	}
	counts, err := s.edges.CountIncoming(ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedNote, 0, len(counts))
	for _, e := range dir {
		if c := counts[e.ID]; c > 0 {
			ranked = append(ranked, RankedNote{ID: e.ID, Slug: e.Slug, Incoming: c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Incoming != ranked[j].Incoming {
			return ranked[i].Incoming > ranked[j].Incoming
		}
		return ranked[i].Slug < ranked[j].Slug
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Snapshot is an owner-scoped view of the graph: every note the owner has
// as a node, and every edge sourced from those notes. Edge targets outside
// the node set appear as endpoints only.
type Snapshot struct {
	Nodes []models.DirectoryEntry `json:"nodes"`
	Edges []models.Edge           `json:"edges"`
}

// OwnerSnapshot returns the full graph snapshot for an owner.
func (s *Service) OwnerSnapshot(_ context.Context, ownerID string) (*Snapshot, error) {
	dir, err := s.notes.Directory(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDirectoryFetch, err)
	}
	ids := make([]string, len(dir))
	for i, e := range dir {
		ids[i] = e.ID
	}
	edges, err := s.edges.EdgesFromSources(ids)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Nodes: nonNilEntries(dir), Edges: nonNilEdges(edges)}, nil
}

// RemoveNote deletes every edge touching the note, in both directions.
func (s *Service) RemoveNote(_ context.Context, noteID string) error {
	return s.edges.RemoveNote(noteID)
}

func nonNilEdges(e []models.Edge) []models.Edge {
	if e == nil {
		return []models.Edge{}
	}
	return e
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEntries(e []models.DirectoryEntry) []models.DirectoryEntry {
	if e == nil {
		return []models.DirectoryEntry{}
	}
	return e
}
