package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/notestore"
)

// handleEvent processes one fsnotify event.
//
// fsnotify fires Rename on the OLD path only; the new path arrives as a
// separate Create event when it stays under the root, so Rename is
// treated as a remove.
func (im *Importer) handleEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event, cb EventCallback) {
	absPath := ev.Name

	// New directories are added to the watch list and scanned for
	// Markdown files that arrived with them.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				im.logger.Warn("ingest: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			}
			im.importDir(ctx, absPath, cb)
			return
		}
	}

	if !strings.HasSuffix(absPath, ".md") {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		noteID, changed, err := im.upsertFile(absPath)
		if err != nil {
			im.logger.Warn("ingest: import failed",
				slog.String("path", absPath),
				slog.String("error", err.Error()))
			return
		}
		if !changed {
			return
		}
		im.syncNote(ctx, noteID)
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		im.logger.Debug("ingest: imported", slog.String("path", absPath), slog.String("op", kind))
		if cb != nil {
			cb(kind, noteID)
		}

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if noteID, ok := im.removeFile(ctx, absPath); ok {
			im.logger.Debug("ingest: removed", slog.String("path", absPath))
			if cb != nil {
				cb("deleted", noteID)
			}
		}
	}
}

// importDir imports any .md files found in a newly created directory.
func (im *Importer) importDir(ctx context.Context, dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		noteID, changed, impErr := im.upsertFile(path)
		if impErr != nil || !changed {
			return nil
		}
		im.syncNote(ctx, noteID)
		if cb != nil {
			cb("created", noteID)
		}
		return nil
	})
}

func newWatcher(root string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addDirsRecursive(w, root); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}

func newNote(ownerID, slugStr, content, checksum string) *models.Note {
	now := time.Now().UTC()
	return &models.Note{
		ID:        notestore.NewID(),
		OwnerID:   ownerID,
		Slug:      slugStr,
		Content:   content,
		Checksum:  checksum,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
