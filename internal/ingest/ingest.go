// Package ingest imports seed Markdown files into the note store for a
// configured owner and keeps them synchronized with disk changes.
package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/starford/gebo/internal/noteservice"
	"github.com/starford/gebo/internal/notestore"
)

// EventCallback is called after an ingest-driven store change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, noteID string)

// Importer maps Markdown files under a root directory to notes owned by
// a single owner. The file's path relative to the root, minus the .md
// extension, determines the note slug.
type Importer struct {
	svc     *noteservice.Service
	root    string
	ownerID string
	logger  *slog.Logger
}

// NewImporter creates an Importer for the given root and owner.
func NewImporter(svc *noteservice.Service, root, ownerID string, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, root: root, ownerID: ownerID, logger: logger}
}

// SlugFor derives the note slug for a file path relative to the root.
func SlugFor(rel string) string {
	rel = strings.TrimSuffix(rel, ".md")
	return slug.Make(strings.ReplaceAll(rel, string(filepath.Separator), "-"))
}

// ImportAll walks the root and imports every .md file. Files whose
// content checksum matches the stored note are skipped. Import runs in
// two passes so that every note exists in the directory before any
// note's references are resolved.
func (im *Importer) ImportAll(ctx context.Context) error {
	var paths []string
	err := filepath.WalkDir(im.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}

	var synced []string
	for _, path := range paths {
		noteID, changed, impErr := im.upsertFile(path)
		if impErr != nil {
			im.logger.Warn("ingest: import failed",
				slog.String("path", path),
				slog.String("error", impErr.Error()))
			continue
		}
		if changed {
			synced = append(synced, noteID)
		}
	}

	for _, noteID := range synced {
		im.syncNote(ctx, noteID)
	}

	im.logger.Info("ingest: import complete",
		slog.String("root", im.root),
		slog.Int("files", len(paths)),
		slog.Int("changed", len(synced)))
	return nil
}

// Watch starts an fsnotify watcher on the root and processes file change
// events until ctx is cancelled. It calls cb (if non-nil) after each
// successful store mutation.
func (im *Importer) Watch(ctx context.Context, cb EventCallback) error {
	w, err := newWatcher(im.root)
	if err != nil {
		return err
	}
	defer w.Close()

	im.logger.Info("ingest: watcher started", slog.String("root", im.root))

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("ingest: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			im.handleEvent(ctx, w, ev, cb)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("ingest: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// upsertFile reads a file and creates or updates its note. It returns
// the note ID and whether the stored content changed.
func (im *Importer) upsertFile(path string) (string, bool, error) {
	rel, err := filepath.Rel(im.root, path)
	if err != nil {
		return "", false, err
	}
	slugStr := SlugFor(rel)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	content := string(data)
	cs := notestore.Checksum(content)

	store := im.svc.Store()
	existing, err := store.GetBySlug(im.ownerID, slugStr)
	switch {
	case err == nil:
		if existing.Checksum == cs {
			return existing.ID, false, nil
		}
		if upErr := store.UpdateContent(existing.ID, content, cs); upErr != nil {
			return "", false, upErr
		}
		return existing.ID, true, nil

	case isNotFound(err):
		n := newNote(im.ownerID, slugStr, content, cs)
		if insErr := store.Insert(n); insErr != nil {
			return "", false, insErr
		}
		return n.ID, true, nil

	default:
		return "", false, err
	}
}

// syncNote recomputes a note's edges from its stored content,
// best-effort.
func (im *Importer) syncNote(ctx context.Context, noteID string) {
	n, err := im.svc.Store().Get(noteID)
	if err != nil {
		return
	}
	if _, err := im.svc.Synchronize(ctx, n.ID, n.OwnerID, n.Content); err != nil {
		im.logger.Warn("ingest: sync failed",
			slog.String("note_id", noteID),
			slog.String("error", err.Error()))
	}
}

// removeFile deletes the note backing a removed file, if one exists.
func (im *Importer) removeFile(ctx context.Context, path string) (string, bool) {
	rel, err := filepath.Rel(im.root, path)
	if err != nil {
		return "", false
	}
	n, err := im.svc.Store().GetBySlug(im.ownerID, SlugFor(rel))
	if err != nil {
		return "", false
	}
	if err := im.svc.DeleteNote(ctx, n.ID); err != nil {
		im.logger.Warn("ingest: delete failed",
			slog.String("note_id", n.ID),
			slog.String("error", err.Error()))
		return "", false
	}
	return n.ID, true
}
