package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"netmap3d/viz-go/internal/manifest"
	"netmap3d/viz-go/internal/render"
)

// handleListModels lists manifest entries, optionally filtered by the
// category or tag query parameter. Category wins when both are set.
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	reg := h.registry
	if reg == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"models": []manifest.Entry{}, "total": 0})
		return
	}

	var entries []manifest.Entry
	switch {
	case r.URL.Query().Get("category") != "":
		entries = reg.GetByCategory(r.URL.Query().Get("category"))
	case r.URL.Query().Get("tag") != "":
		entries = reg.GetByTag(r.URL.Query().Get("tag"))
	default:
		entries = reg.All()
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"models": entries,
		"total":  len(entries),
	})
}

func (h *Handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.registry == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "model not found", map[string]any{"name": name})
		return
	}
	entry, ok := h.registry.GetByName(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "model not found", map[string]any{"name": name})
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// handleGetScene returns the renderer's current scene snapshot.
func (h *Handler) handleGetScene(w http.ResponseWriter, _ *http.Request) {
	if h.renderer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "renderer_unavailable", "renderer not configured", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, h.renderer.Snapshot())
}

// handleLoadScene replaces the rendered graph with the posted data.
func (h *Handler) handleLoadScene(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "renderer_unavailable", "renderer not configured", nil)
		return
	}

	var data render.GraphData
	if err := decodeJSONStrict(r, &data); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid scene payload", map[string]any{"error": err.Error()})
		return
	}

	if err := h.renderer.LoadData(data); err != nil {
		if errors.Is(err, render.ErrNotReady) {
			h.writeError(w, http.StatusServiceUnavailable, "renderer_unavailable", "renderer not initialized", nil)
			return
		}
		h.log.Error().Err(err).Msg("scene load failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "failed to load scene", nil)
		return
	}
	h.metrics.IncSceneLoad()

	h.writeJSON(w, http.StatusOK, h.renderer.Snapshot())
}
