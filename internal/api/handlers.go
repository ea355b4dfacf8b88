package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/noteservice"
	"github.com/starford/gebo/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	links  *backlink.Service
	events *sse.Broker
}

// NewHandler creates a new Handler. events may be nil when no broker is
// running (tests, MCP mode).
func NewHandler(svc *noteservice.Service, links *backlink.Service, events *sse.Broker) *Handler {
	return &Handler{svc: svc, links: links, events: events}
}

func (h *Handler) publish(kind, noteID string) {
	if h.events != nil {
		h.events.PublishNoteEvent(kind, noteID)
	}
}

// Sync handles POST /api/sync: recompute and replace a note's outgoing
// edge set from the submitted content.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body", CodeInvalidBody))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error(), CodeMissingField))
		return
	}

	res, err := h.svc.Synchronize(r.Context(), *req.NoteID, *req.OwnerID, *req.Content)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("note not found", CodeNotFound))
		case errors.Is(err, apperr.ErrDirectoryFetch), errors.Is(err, apperr.ErrEdgeReplace):
			slog.Error("sync failed", slog.String("note_id", *req.NoteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error(), CodeSyncFailed))
		default:
			slog.Error("sync failed", slog.String("note_id", *req.NoteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		}
		return
	}
	h.publish("synced", *req.NoteID)
	writeJSON(w, http.StatusOK, res)
}

// Outgoing handles GET /api/graph/outgoing/{noteID}.
func (h *Handler) Outgoing(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	edges, err := h.links.Outgoing(r.Context(), noteID)
	if err != nil {
		slog.Error("outgoing failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}

// Incoming handles GET /api/graph/incoming/{noteID}.
func (h *Handler) Incoming(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	edges, err := h.links.Incoming(r.Context(), noteID)
	if err != nil {
		slog.Error("incoming failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}

// TopReferenced handles GET /api/graph/top?owner_id=&limit=.
func (h *Handler) TopReferenced(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("owner_id is required", CodeMissingField))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.links.TopReferenced(r.Context(), ownerID, limit)
	if err != nil {
		slog.Error("top referenced failed", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": top})
}

// Snapshot handles GET /api/graph?owner_id=.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("owner_id is required", CodeMissingField))
		return
	}
	snap, err := h.links.OwnerSnapshot(r.Context(), ownerID)
	if err != nil {
		slog.Error("snapshot failed", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body", CodeInvalidBody))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error(), CodeMissingField))
		return
	}

	note, sync, err := h.svc.CreateNote(r.Context(), req.OwnerID, req.Slug, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("note already exists", CodeAlreadyExists))
		} else {
			slog.Error("create note failed", slog.String("owner_id", req.OwnerID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		}
		return
	}
	h.publish("created", note.ID)
	writeJSON(w, http.StatusCreated, NoteResponse{Note: note, Sync: sync})
}

// GetNote handles GET /api/notes/{noteID}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	note, err := h.svc.GetNote(r.Context(), noteID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found", CodeNotFound))
		} else {
			slog.Error("get note failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{noteID} with optimistic concurrency
// via the If-Match header.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	noteID := chi.URLParam(r, "noteID")

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body", CodeInvalidBody))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	if len(ifMatch) >= 2 && ifMatch[0] == '"' && ifMatch[len(ifMatch)-1] == '"' {
		ifMatch = ifMatch[1 : len(ifMatch)-1]
	}

	note, sync, err := h.svc.UpdateNote(r.Context(), noteID, req.Content, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found", CodeNotFound))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch", CodeConflict))
		default:
			slog.Error("update note failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		}
		return
	}
	h.publish("updated", noteID)
	writeJSON(w, http.StatusOK, NoteResponse{Note: note, Sync: sync})
}

// DeleteNote handles DELETE /api/notes/{noteID}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	if err := h.svc.DeleteNote(r.Context(), noteID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found", CodeNotFound))
		} else {
			slog.Error("delete note failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		}
		return
	}
	h.publish("deleted", noteID)
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /api/notes?owner_id=&limit=&offset=.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerID := q.Get("owner_id")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("owner_id is required", CodeMissingField))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), ownerID, limit, offset)
	if err != nil {
		slog.Error("list notes failed", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", CodeInternal))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}
