package render

import (
	"testing"

	"github.com/starford/gebo/internal/models"
)

var dir = []models.DirectoryEntry{
	{ID: "n1", Slug: "intro"},
	{ID: "n2", Slug: "advanced-"},
}

func TestLinkedNotes(t *testing.T) {
	content := "See [[intro]], [[advanced]], [[intro]] and [[missing]]."
	linked := LinkedNotes(content, "self", dir)
	if len(linked) != 2 {
		t.Fatalf("linked = %+v, want 2", linked)
	}
	if linked[0].ID != "n1" || linked[1].ID != "n2" {
		t.Errorf("linked = %+v", linked)
	}
}

func TestLinkedNotes_ExcludesSelf(t *testing.T) {
	linked := LinkedNotes("[[intro]]", "n1", dir)
	if len(linked) != 0 {
		t.Errorf("linked = %+v, want none", linked)
	}
}

func TestRewrite(t *testing.T) {
	got := Rewrite("Read [[advanced]] next, not [[missing]].", "self", dir)
	want := "Read [advanced](/notes/n2) next, not [[missing]]."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewrite_SelfReferenceLeftAsWritten(t *testing.T) {
	got := Rewrite("loop to [[intro]]", "n1", dir)
	if got != "loop to [[intro]]" {
		t.Errorf("got %q", got)
	}
}
