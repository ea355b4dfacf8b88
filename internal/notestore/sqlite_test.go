package notestore

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "gebo-notes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func note(id, owner, slug, content string) *models.Note {
	now := time.Now().UTC()
	return &models.Note{
		ID: id, OwnerID: owner, Slug: slug, Content: content,
		Checksum: Checksum(content), CreatedAt: now, UpdatedAt: now,
	}
}

func TestInsertAndGet(t *testing.T) {
	db := testDB(t)
	if err := db.Insert(note("n1", "owner", "intro", "hello")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := db.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Slug != "intro" || got.Content != "hello" {
		t.Errorf("note = %+v", got)
	}
}

func TestInsert_SlugCollision(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(note("n1", "owner", "dup", "a"))
	err := db.Insert(note("n2", "owner", "dup", "b"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	// Same slug under a different owner is fine.
	if err := db.Insert(note("n3", "other", "dup", "c")); err != nil {
		t.Errorf("cross-owner slug should insert: %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(note("n1", "owner", "intro", "x"))
	got, err := db.GetBySlug("owner", "intro")
	if err != nil || got.ID != "n1" {
		t.Errorf("GetBySlug = %+v, %v", got, err)
	}
	if _, err := db.GetBySlug("other", "intro"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-owner lookup = %v, want ErrNotFound", err)
	}
}

func TestDirectory_OrderedBySlug(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(note("n2", "owner", "zebra", "x"))
	_ = db.Insert(note("n1", "owner", "alpha", "x"))
	_ = db.Insert(note("n3", "other", "beta", "x"))

	dir, err := db.Directory("owner")
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if len(dir) != 2 || dir[0].Slug != "alpha" || dir[1].Slug != "zebra" {
		t.Errorf("directory = %+v", dir)
	}
}

func TestUpdateContent(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(note("n1", "owner", "intro", "v1"))
	if err := db.UpdateContent("n1", "v2", Checksum("v2")); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	got, _ := db.Get("n1")
	if got.Content != "v2" || got.Checksum != Checksum("v2") {
		t.Errorf("note = %+v", got)
	}
}

func TestUpdateContent_NotFound(t *testing.T) {
	db := testDB(t)
	if err := db.UpdateContent("ghost", "x", "cs"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(note("n1", "owner", "bye", "x"))
	if err := db.Delete("n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := db.Delete("n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestList_Pagination(t *testing.T) {
	db := testDB(t)
	for _, s := range []string{"a", "b", "c"} {
		_ = db.Insert(note("id-"+s, "owner", s, "x"))
	}
	notes, total, err := db.List("owner", 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(notes) != 2 {
		t.Errorf("total = %d, page = %d, want 3/2", total, len(notes))
	}
	notes, _, _ = db.List("owner", 2, 2)
	if len(notes) != 1 || notes[0].Slug != "c" {
		t.Errorf("second page = %+v", notes)
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b || len(a) != 32 {
		t.Errorf("ids = %q, %q", a, b)
	}
}
