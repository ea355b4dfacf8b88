// Package testutil provides shared test helpers for setting up stores
// and services.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/noteservice"
	"github.com/starford/gebo/internal/notestore"
)

// TestStores creates a temporary SQLite database, opened once as a note
// store and once as a graph store, both automatically cleaned up.
func TestStores(t *testing.T) (*notestore.DB, *graph.DB) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gebo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	notes, err := notestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { notes.Close() })

	edges, err := graph.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { edges.Close() })

	return notes, edges
}

// TestServices wires stores into a backlink service and a note service.
func TestServices(t *testing.T) (*noteservice.Service, *backlink.Service) {
	t.Helper()
	notes, edges := TestStores(t)
	links := backlink.NewService(notes, edges)
	return noteservice.NewService(notes, links), links
}
