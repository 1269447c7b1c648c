// Package api provides HTTP handlers for the gesture catalog.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// GestureHandler serves CRUD requests for catalog entries. Every change is
// checked against the whole catalog before it is written, then onChange is
// called so the running loop picks it up.
type GestureHandler struct {
	store    *store.Store
	onChange func() error
}

// NewGestureHandler creates a handler over s. onChange may be nil.
func NewGestureHandler(s *store.Store, onChange func() error) *GestureHandler {
	return &GestureHandler{store: s, onChange: onChange}
}

// ServeHTTP routes /api/gestures and /api/gestures/{id}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// gestureRequest is a catalog entry as submitted by clients. A zero
// Position appends on create and keeps the current slot on update.
type gestureRequest struct {
	gesture.Entry
	Position int `json:"position"`
}

type listGesturesResponse struct {
	Gestures []*store.Gesture `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		slog.Error("failed to list gestures", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}
	if gestures == nil {
		gestures = []*store.Gesture{}
	}
	writeJSON(w, http.StatusOK, listGesturesResponse{Gestures: gestures})
}

func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	if _, err := h.store.Gestures().GetByID(req.ID); err == nil {
		writeError(w, http.StatusConflict, "Gesture with this id already exists")
		return
	}

	g := &store.Gesture{Entry: req.Entry, Position: req.Position}
	if err := h.check(func(entries []*store.Gesture) []*store.Gesture {
		return append(entries, g)
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Gestures().Create(g); err != nil {
		slog.Error("failed to create gesture", "id", g.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}
	h.changed()
	writeJSON(w, http.StatusCreated, g)
}

func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "Gesture id cannot be changed")
		return
	}

	existing.Entry = req.Entry
	existing.ID = id
	if req.Position > 0 {
		existing.Position = req.Position
	}

	if err := h.check(func(entries []*store.Gesture) []*store.Gesture {
		for i, e := range entries {
			if e.ID == id {
				entries[i] = existing
			}
		}
		return entries
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Gestures().Update(existing); err != nil {
		slog.Error("failed to update gesture", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, existing)
}

func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Gestures().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	if err := h.check(func(entries []*store.Gesture) []*store.Gesture {
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		return kept
	}); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if err := h.store.Gestures().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}
	h.changed()
	w.WriteHeader(http.StatusNoContent)
}

// check applies edit to the stored entries and validates the result as a
// catalog.
func (h *GestureHandler) check(edit func([]*store.Gesture) []*store.Gesture) error {
	current, err := h.store.Gestures().List()
	if err != nil {
		return err
	}
	next := edit(current)
	entries := make([]gesture.Entry, len(next))
	for i, g := range next {
		entries[i] = g.Entry
	}
	_, err = gesture.NewCatalog(entries)
	return err
}

func (h *GestureHandler) changed() {
	if h.onChange == nil {
		return
	}
	if err := h.onChange(); err != nil {
		slog.Error("failed to reload catalog", "error", err)
	}
}
