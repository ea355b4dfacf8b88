package backlink

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/notestore"
	"github.com/starford/gebo/internal/reference"
)

func testService(t *testing.T) (*Service, *notestore.DB) {
	t.Helper()
	f, err := os.CreateTemp("", "gebo-backlink-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	notes, err := notestore.Open(f.Name())
	if err != nil {
		t.Fatalf("notestore.Open: %v", err)
	}
	t.Cleanup(func() { notes.Close() })

	edges, err := graph.Open(f.Name())
	if err != nil {
		t.Fatalf("graph.Open: %v", err)
	}
	t.Cleanup(func() { edges.Close() })

	return NewService(notes, edges), notes
}

func seed(t *testing.T, notes *notestore.DB, id, owner, slug, content string) {
	t.Helper()
	now := time.Now().UTC()
	err := notes.Insert(&models.Note{
		ID: id, OwnerID: owner, Slug: slug, Content: content,
		Checksum: notestore.Checksum(content), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", slug, err)
	}
}

func TestSynchronize_TrailingHyphenAndUnresolved(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "2", "owner", "advanced-", "")

	content := "See [[advanced]] and [[missing]]."
	res, err := svc.Synchronize(ctx, "1", "owner", content)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if len(res.Inserted) != 1 || res.Inserted[0].TargetNoteID != "2" {
		t.Errorf("inserted = %+v, want single edge 1->2", res.Inserted)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "missing" {
		t.Errorf("unresolved = %v, want [missing]", res.Unresolved)
	}

	out, _ := svc.Outgoing(ctx, "1")
	if len(out) != 1 || out[0].TargetNoteID != "2" {
		t.Errorf("outgoing = %+v", out)
	}
}

func TestSynchronize_IdempotentAndDeduplicated(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "3", "owner", "third", "")

	for i := 0; i < 2; i++ {
		res, err := svc.Synchronize(ctx, "3", "owner", "[[intro]] [[intro]] [[intro]]")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(res.Inserted) != 1 {
			t.Errorf("run %d: inserted = %d, want 1", i, len(res.Inserted))
		}
		out, _ := svc.Outgoing(ctx, "3")
		if len(out) != 1 || out[0].TargetNoteID != "1" {
			t.Fatalf("run %d: outgoing = %+v, want {(3->1)}", i, out)
		}
	}
}

func TestSynchronize_SelfReferenceProducesNoEdge(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")

	res, err := svc.Synchronize(ctx, "1", "owner", "about [[intro]] itself")
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if len(res.Inserted) != 0 {
		t.Errorf("inserted = %+v, want none", res.Inserted)
	}
}

func TestSynchronize_ReplacesPriorEdges(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "source", "")
	seed(t, notes, "2", "owner", "old", "")
	seed(t, notes, "3", "owner", "new", "")

	_, _ = svc.Synchronize(ctx, "1", "owner", "[[old]]")
	_, err := svc.Synchronize(ctx, "1", "owner", "[[new]]")
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	out, _ := svc.Outgoing(ctx, "1")
	if len(out) != 1 || out[0].TargetNoteID != "3" {
		t.Errorf("outgoing = %+v, want single edge to 3", out)
	}
}

func TestSynchronize_UnknownNote(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Synchronize(context.Background(), "ghost", "owner", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSynchronize_WrongOwner(t *testing.T) {
	svc, notes := testService(t)
	seed(t, notes, "1", "owner", "intro", "")
	_, err := svc.Synchronize(context.Background(), "1", "intruder", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTopReferenced(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "2", "owner", "advanced-", "")
	seed(t, notes, "3", "owner", "third", "")

	_, _ = svc.Synchronize(ctx, "1", "owner", "See [[advanced]] and [[missing]].")
	_, _ = svc.Synchronize(ctx, "3", "owner", "[[intro]]")

	top, err := svc.TopReferenced(ctx, "owner", 1)
	if err != nil {
		t.Fatalf("TopReferenced: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("top = %+v, want 1 entry", top)
	}
	// intro and advanced- both have one incoming edge; slug tie-break
	// puts advanced- first.
	if top[0].Slug != "advanced-" || top[0].Incoming != 1 {
		t.Errorf("top[0] = %+v", top[0])
	}

	top, _ = svc.TopReferenced(ctx, "owner", 10)
	if len(top) != 2 {
		t.Errorf("top(10) = %+v, want 2 entries", top)
	}
}

func TestTopReferenced_RecomputedPerCall(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "3", "owner", "third", "")

	_, _ = svc.Synchronize(ctx, "3", "owner", "[[intro]]")
	top, _ := svc.TopReferenced(ctx, "owner", 10)
	if len(top) != 1 || top[0].ID != "1" || top[0].Incoming != 1 {
		t.Fatalf("top = %+v", top)
	}

	// Removing the reference must drop the count on the next call.
	_, _ = svc.Synchronize(ctx, "3", "owner", "no refs")
	top, _ = svc.TopReferenced(ctx, "owner", 10)
	if len(top) != 0 {
		t.Errorf("top after unlink = %+v, want empty", top)
	}
}

func TestOwnerSnapshot(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "2", "owner", "other", "")
	seed(t, notes, "9", "stranger", "elsewhere", "")

	_, _ = svc.Synchronize(ctx, "1", "owner", "[[other]]")

	snap, err := svc.OwnerSnapshot(ctx, "owner")
	if err != nil {
		t.Fatalf("OwnerSnapshot: %v", err)
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("nodes = %+v, want 2", snap.Nodes)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].SourceNoteID != "1" {
		t.Errorf("edges = %+v", snap.Edges)
	}
}

func TestRemoveNote_ClearsBothDirections(t *testing.T) {
	svc, notes := testService(t)
	ctx := context.Background()
	seed(t, notes, "1", "owner", "intro", "")
	seed(t, notes, "2", "owner", "mid", "")
	seed(t, notes, "3", "owner", "tail", "")

	_, _ = svc.Synchronize(ctx, "1", "owner", "[[mid]]")
	_, _ = svc.Synchronize(ctx, "2", "owner", "[[tail]]")

	if err := svc.RemoveNote(ctx, "2"); err != nil {
		t.Fatalf("RemoveNote: %v", err)
	}
	if in, _ := svc.Incoming(ctx, "2"); len(in) != 0 {
		t.Errorf("incoming survived: %+v", in)
	}
	if out, _ := svc.Outgoing(ctx, "2"); len(out) != 0 {
		t.Errorf("outgoing survived: %+v", out)
	}
}

// failingEdges simulates an edge store whose replace stage fails.
type failingEdges struct {
	EdgeStore
}

func (f *failingEdges) ReplaceOutgoing(string, []reference.Resolved) ([]models.Edge, []string, error) {
	return nil, nil, errors.New("disk full")
}

func TestSynchronize_EdgeReplaceStageError(t *testing.T) {
	svc, notes := testService(t)
	seed(t, notes, "1", "owner", "intro", "")

	svc.edges = &failingEdges{}
	_, err := svc.Synchronize(context.Background(), "1", "owner", "x")
	if !errors.Is(err, apperr.ErrEdgeReplace) {
		t.Errorf("err = %v, want ErrEdgeReplace", err)
	}
}
