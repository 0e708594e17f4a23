package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"netmap3d/viz-go/internal/collector"
	"netmap3d/viz-go/internal/db"
	"netmap3d/viz-go/internal/inventory"
	"netmap3d/viz-go/internal/manifest"
	"netmap3d/viz-go/internal/metrics"
	"netmap3d/viz-go/internal/render"
	"netmap3d/viz-go/internal/topology"
)

// Deps wires the visualization core into the REST surface. Most fields
// may be nil; the affected routes then degrade to documented defaults.
type Deps struct {
	Pool      *db.Pool
	Source    inventory.Source
	Sink      inventory.Sink
	Registry  *manifest.Registry
	Builder   *topology.Builder
	Renderer  *render.Renderer
	Collector *collector.Collector
	Metrics   *metrics.Metrics
}

type Handler struct {
	log       zerolog.Logger
	pool      *db.Pool
	source    inventory.Source
	sink      inventory.Sink
	registry  *manifest.Registry
	builder   *topology.Builder
	renderer  *render.Renderer
	collector *collector.Collector
	metrics   *metrics.Metrics

	// Last good device listing; served when a fresh fetch fails.
	mu         sync.Mutex
	lastGood   []inventory.DeviceRecord
	lastGoodOK bool
}

func NewHandler(log zerolog.Logger, deps Deps) *Handler {
	builder := deps.Builder
	if builder == nil {
		builder = topology.NewBuilder(log)
	}
	return &Handler{
		log:       log,
		pool:      deps.Pool,
		source:    deps.Source,
		sink:      deps.Sink,
		registry:  deps.Registry,
		builder:   builder,
		renderer:  deps.Renderer,
		collector: deps.Collector,
		metrics:   deps.Metrics,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", h.handleListDevices)
				r.Post("/", h.handleIngestDevice)
			})

			r.Route("/collect", func(r chi.Router) {
				r.Post("/", h.handleCollect)
				r.Get("/status", h.handleCollectStatus)
			})

			r.Route("/topology", func(r chi.Router) {
				r.Get("/", h.handleGetTopology)
				r.Post("/", h.handleBuildTopology)
			})

			r.Route("/models", func(r chi.Router) {
				r.Get("/", h.handleListModels)
				r.Get("/{name}", h.handleGetModel)
			})

			r.Route("/scene", func(r chi.Router) {
				r.Get("/", h.handleGetScene)
				r.Post("/load", h.handleLoadScene)
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), duration)
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", nil)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// listDevices fetches the current record set, falling back to the last
// good listing when the source fails. The second return reports stale
// data.
func (h *Handler) listDevices(ctx context.Context) ([]inventory.DeviceRecord, bool) {
	if h.source == nil {
		return nil, false
	}
	devices, _, err := h.source.ListDevices(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("device listing failed, serving last good records")
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.lastGoodOK {
			return h.lastGood, true
		}
		return nil, true
	}

	h.mu.Lock()
	h.lastGood = devices
	h.lastGoodOK = true
	h.mu.Unlock()
	return devices, false
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, stale := h.listDevices(r.Context())
	if devices == nil {
		devices = []inventory.DeviceRecord{}
	}
	resp := map[string]any{
		"devices": devices,
		"total":   len(devices),
	}
	if stale {
		resp["stale"] = true
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleIngestDevice(w http.ResponseWriter, r *http.Request) {
	if h.sink == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no_sink", "device ingest not configured", nil)
		return
	}

	var rec inventory.DeviceRecord
	if err := decodeJSONStrict(r, &rec); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid device record", map[string]any{"error": err.Error()})
		return
	}
	if rec.ID == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "device id is required", nil)
		return
	}

	if err := h.sink.UpsertDevice(r.Context(), rec); err != nil {
		h.log.Error().Err(err).Str("device_id", rec.ID).Msg("device upsert failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to store device", nil)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleCollect(w http.ResponseWriter, r *http.Request) {
	if h.collector == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no_collector", "collection trigger not configured", nil)
		return
	}

	var req collector.CollectRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid collect request", map[string]any{"error": err.Error()})
		return
	}

	ack, err := h.collector.Trigger(r.Context(), req)
	if err != nil {
		if errors.Is(err, collector.ErrMissingHost) {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "host is required", nil)
			return
		}
		h.log.Error().Err(err).Msg("collection trigger failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "failed to trigger collection", nil)
		return
	}
	h.writeJSON(w, http.StatusAccepted, ack)
}

func (h *Handler) handleCollectStatus(w http.ResponseWriter, _ *http.Request) {
	if h.collector == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no_collector", "collection trigger not configured", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, h.collector.Status())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}
