package httpapi

import (
	"net/http"

	"netmap3d/viz-go/internal/inventory"
	"netmap3d/viz-go/internal/topology"
)

// handleGetTopology builds the graph from the live device set. Without
// explicit connection data the builder synthesizes a star around the
// core device.
func (h *Handler) handleGetTopology(w http.ResponseWriter, r *http.Request) {
	devices, stale := h.listDevices(r.Context())

	graph := h.builder.Build(devices, nil)
	h.metrics.IncTopologyBuild()

	resp := map[string]any{
		"graph": graph,
	}
	if stale {
		resp["stale"] = true
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type buildTopologyRequest struct {
	Devices     []inventory.DeviceRecord `json:"devices"`
	Connections []topology.Connection    `json:"connections"`
}

// handleBuildTopology builds a graph from a caller-supplied device and
// connection set without touching the stored inventory.
func (h *Handler) handleBuildTopology(w http.ResponseWriter, r *http.Request) {
	var req buildTopologyRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid topology request", map[string]any{"error": err.Error()})
		return
	}

	graph := h.builder.Build(req.Devices, req.Connections)
	h.metrics.IncTopologyBuild()

	h.writeJSON(w, http.StatusOK, map[string]any{"graph": graph})
}
