// Package reference extracts [[bracketed]] reference labels from note
// content and resolves them against an owner's note directory. Both the
// graph synchronizer and the render layer use this package, so the two
// always apply identical matching rules.
package reference

import (
	"regexp"
	"strings"

	"github.com/starford/gebo/internal/models"
)

var labelRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// ExtractLabels returns every reference label in content, left to right,
// in order of first appearance. Duplicates are preserved. Labels are
// trimmed of surrounding whitespace; brackets that are empty or
// whitespace-only yield nothing. There are no error conditions.
func ExtractLabels(content string) []string {
	matches := labelRe.FindAllStringSubmatch(content, -1)
	var out []string
	for _, m := range matches {
		label := strings.TrimSpace(m[1])
		if label == "" {
			continue
		}
		out = append(out, label)
	}
	return out
}

// Resolve maps a raw label to a note in the owner's directory. The first
// directory entry whose slug matches wins. A match on the resolving note
// itself resolves to nothing (self-references never produce edges), as
// does a label matching no entry.
func Resolve(label, selfID string, dir []models.DirectoryEntry) (string, bool) {
	for _, e := range dir {
		if !slugMatches(e.Slug, label) {
			continue
		}
		if e.ID == selfID {
			return "", false
		}
		return e.ID, true
	}
	return "", false
}

// slugMatches applies the tolerant matching rules, in order: exact
// equality, equality with one trailing hyphen appended to the label, and
// equality with trailing hyphens stripped from both sides. The hyphen
// tolerance exists because title-derived slug generation can leave
// trailing hyphens on stored slugs.
func slugMatches(slug, label string) bool {
	if slug == label {
		return true
	}
	if slug == label+"-" {
		return true
	}
	return strings.TrimRight(slug, "-") == strings.TrimRight(label, "-")
}

// Resolved is one label that resolved to a target note.
type Resolved struct {
	TargetID string
	Label    string
}

// ResolveAll resolves every label, silently dropping misses and
// self-references, and deduplicates by target id. First-seen order is
// preserved and the label of the first occurrence is kept.
func ResolveAll(labels []string, selfID string, dir []models.DirectoryEntry) []Resolved {
	seen := make(map[string]struct{}, len(labels))
	var out []Resolved
	for _, label := range labels {
		id, ok := Resolve(label, selfID, dir)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Resolved{TargetID: id, Label: label})
	}
	return out
}

// RewriteLabels replaces each [[label]] occurrence with the string
// returned by repl. Occurrences for which repl returns false are left
// untouched, raw brackets included.
func RewriteLabels(content string, repl func(label string) (string, bool)) string {
	return labelRe.ReplaceAllStringFunc(content, func(match string) string {
		label := strings.TrimSpace(match[2 : len(match)-2])
		if label == "" {
			return match
		}
		if out, ok := repl(label); ok {
			return out
		}
		return match
	})
}
