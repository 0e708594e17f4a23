package render

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"netmap3d/viz-go/internal/topology"
)

// State is the renderer lifecycle:
// uninitialized -> (Init) -> ready -> (LoadData) -> data_loaded.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateDataLoaded    State = "data_loaded"
)

var (
	ErrEngineUnavailable = errors.New("3d engine unavailable")
	ErrNotReady          = errors.New("renderer not ready")
)

// Engine abstracts the 3D runtime. The renderer pushes whole-scene
// snapshots; it never reaches into engine internals.
type Engine interface {
	AcquireSurface(width, height int) error
	SetSize(width, height int)
	SetBackground(color string)
	Apply(s Snapshot)
	CameraFit(b Bounds, padding float64)
}

// headless is the default engine: it accepts every call and renders
// nothing, which keeps the core runnable and testable without a GPU
// runtime.
type headless struct{}

func (headless) AcquireSurface(int, int) error { return nil }
func (headless) SetSize(int, int)              {}
func (headless) SetBackground(string)          {}
func (headless) Apply(Snapshot)                {}
func (headless) CameraFit(Bounds, float64)     {}

func Headless() Engine { return headless{} }

// GraphData is the LoadData payload: {nodes, links}, with the legacy
// {devices, connections} aliases accepted for compatibility.
type GraphData struct {
	Nodes       []topology.Node       `json:"nodes,omitempty"`
	Links       []topology.Connection `json:"links,omitempty"`
	Devices     []topology.Node       `json:"devices,omitempty"`
	Connections []topology.Connection `json:"connections,omitempty"`
}

// FromGraph adapts a built topology graph into renderer input.
func FromGraph(g topology.Graph) GraphData {
	data := GraphData{Nodes: g.Nodes}
	for _, l := range g.Links {
		data.Links = append(data.Links, topology.Connection{Source: l.Source, Target: l.Target})
	}
	return data
}

// Snapshot is the renderer's full scene state. LoadData replaces it
// atomically; readers never see a half-built scene.
type Snapshot struct {
	State        State        `json:"state"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Background   string       `json:"background"`
	NavOverlay   bool         `json:"nav_overlay"`
	LinkDefaults LinkStyle    `json:"link_defaults"`
	Objects      []Object     `json:"objects"`
	Links        []LinkVisual `json:"links"`
	Bounds       Bounds       `json:"bounds"`
}

type Options struct {
	Engine      Engine
	Width       int
	Height      int
	Background  string
	LinkStyle   LinkStyle
	SettleDelay time.Duration
	LayoutTicks int
	FitPadding  float64
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Background == "" {
		o.Background = "#0b1220"
	}
	if o.LinkStyle == (LinkStyle{}) {
		o.LinkStyle = LinkStyle{Color: "#94a3b8", Opacity: 0.55, Width: 1.2}
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.LayoutTicks <= 0 {
		o.LayoutTicks = 120
	}
	if o.FitPadding <= 0 {
		o.FitPadding = 1.2
	}
}

// Renderer owns the scene, the force layout, and the per-node visual
// objects. All state transitions happen under one mutex, the Go
// rendering of the host's single-threaded event loop.
type Renderer struct {
	log        zerolog.Logger
	dispatcher *Dispatcher

	mu       sync.Mutex
	state    State
	engine   Engine
	opts     Options
	snapshot Snapshot
	epoch    uint64
}

func New(log zerolog.Logger, dispatcher *Dispatcher, opts Options) *Renderer {
	opts.defaults()
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	return &Renderer{
		log:        log,
		dispatcher: dispatcher,
		state:      StateUninitialized,
		opts:       opts,
	}
}

// Init acquires the rendering surface and configures the scene. A
// missing or failing engine is logged and leaves the renderer
// uninitialized; callers must check Ready before LoadData.
func (r *Renderer) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return nil
	}
	if r.opts.Engine == nil {
		r.log.Error().Msg("3d engine unavailable, renderer stays uninitialized")
		return ErrEngineUnavailable
	}
	if err := r.opts.Engine.AcquireSurface(r.opts.Width, r.opts.Height); err != nil {
		r.log.Error().Err(err).Msg("3d surface acquisition failed, renderer stays uninitialized")
		return ErrEngineUnavailable
	}

	r.engine = r.opts.Engine
	r.engine.SetBackground(r.opts.Background)
	r.snapshot = Snapshot{
		State:        StateReady,
		Width:        r.opts.Width,
		Height:       r.opts.Height,
		Background:   r.opts.Background,
		NavOverlay:   false,
		LinkDefaults: r.opts.LinkStyle,
		Objects:      []Object{},
		Links:        []LinkVisual{},
	}
	r.state = StateReady

	// Container resize listener: synchronous, no debouncing.
	r.dispatcher.Subscribe(EventResize, func(e Event) {
		r.SetSize(e.Width, e.Height)
	})

	r.log.Info().
		Int("width", r.opts.Width).
		Int("height", r.opts.Height).
		Str("background", r.opts.Background).
		Msg("renderer initialized")
	return nil
}

func (r *Renderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateReady || r.state == StateDataLoaded
}

func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetSize updates the rendering surface to the container's pixel box.
func (r *Renderer) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateUninitialized {
		return
	}
	r.snapshot.Width = width
	r.snapshot.Height = height
	r.engine.SetSize(width, height)
}

// LoadData replaces the rendered graph wholesale. It normalizes link
// aliases, drops links with unknown endpoints, lays the graph out, and
// schedules a camera fit once the scene has settled. Structurally
// identical input produces an identical snapshot.
func (r *Renderer) LoadData(data GraphData) error {
	r.mu.Lock()

	if r.state == StateUninitialized {
		r.mu.Unlock()
		r.log.Warn().Msg("loadData ignored: renderer not initialized")
		return ErrNotReady
	}

	nodes := data.Nodes
	if len(nodes) == 0 {
		nodes = data.Devices
	}
	connections := data.Links
	if len(connections) == 0 {
		connections = data.Connections
	}

	index := make(map[string]int, len(nodes))
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			r.log.Warn().Msg("node without id dropped from scene")
			continue
		}
		if _, dup := index[n.ID]; dup {
			r.log.Warn().Str("node_id", n.ID).Msg("duplicate node id dropped from scene")
			continue
		}
		index[n.ID] = len(ids)
		ids = append(ids, n.ID)
	}

	links := make([]LinkVisual, 0, len(connections))
	edges := make([][2]int, 0, len(connections))
	for _, c := range connections {
		l, ok := c.Normalize()
		if !ok {
			r.log.Warn().Msg("malformed link dropped from scene")
			continue
		}
		si, sok := index[l.Source]
		ti, tok := index[l.Target]
		if !sok || !tok {
			r.log.Warn().Str("source", l.Source).Str("target", l.Target).Msg("link with unknown endpoint dropped from scene")
			continue
		}
		links = append(links, LinkVisual{Source: l.Source, Target: l.Target})
		edges = append(edges, [2]int{si, ti})
	}

	objects := make([]Object, 0, len(ids))
	sizes := make([]float64, 0, len(ids))
	for _, n := range nodes {
		if i, ok := index[n.ID]; !ok || i != len(objects) {
			continue
		}
		objects = append(objects, buildObject(n))
		sizes = append(sizes, objects[len(objects)-1].Size)
	}

	positions := layoutPositions(ids, edges, r.opts.LayoutTicks)
	for i := range objects {
		objects[i].Position = positions[i]
	}

	snap := Snapshot{
		State:        StateDataLoaded,
		Width:        r.snapshot.Width,
		Height:       r.snapshot.Height,
		Background:   r.snapshot.Background,
		NavOverlay:   false,
		LinkDefaults: r.opts.LinkStyle,
		Objects:      objects,
		Links:        links,
		Bounds:       boundsOf(positions, sizes),
	}

	r.snapshot = snap
	r.state = StateDataLoaded
	r.epoch++
	epoch := r.epoch
	engine := r.engine
	bounds := snap.Bounds
	r.mu.Unlock()

	engine.Apply(snap)
	r.dispatcher.Publish(Event{Type: EventGraphLoaded})
	r.log.Info().Int("nodes", len(objects)).Int("links", len(links)).Msg("graph loaded into scene")

	// Camera fit after the layout settles. A newer load wins the race.
	time.AfterFunc(r.opts.SettleDelay, func() {
		r.mu.Lock()
		current := r.epoch == epoch && r.state == StateDataLoaded
		r.mu.Unlock()
		if !current {
			return
		}
		engine.CameraFit(bounds, r.opts.FitPadding)
		r.dispatcher.Publish(Event{Type: EventCameraFit})
	})

	return nil
}

// Snapshot returns a copy of the current scene state.
func (r *Renderer) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot
	snap.State = r.state
	snap.Objects = append([]Object(nil), r.snapshot.Objects...)
	snap.Links = append([]LinkVisual(nil), r.snapshot.Links...)
	return snap
}

// HandleNodeClick surfaces a node interaction to subscribers by id.
func (r *Renderer) HandleNodeClick(nodeID string) {
	if nodeID == "" {
		return
	}
	r.dispatcher.Publish(Event{Type: EventNodeClick, NodeID: nodeID})
}

func buildObject(n topology.Node) Object {
	kind := string(n.Type)
	color := ColorFor(kind)
	label := strings.TrimSpace(n.Name)
	if label == "" {
		label = n.ID
	}
	return Object{
		NodeID:   n.ID,
		Kind:     kind,
		Color:    color,
		Size:     SizeFor(kind),
		Geometry: GeometryFor(kind, color),
		Label:    LabelFor(label),
	}
}

// ViewportController keeps the rendering surface synchronized with its
// container. Resize events apply the container's pixel box
// synchronously in dispatch order.
type ViewportController struct {
	log       zerolog.Logger
	renderer  *Renderer
	container Container
}

// Container exposes the host element's current pixel box.
type Container interface {
	Size() (width, height int)
}

func NewViewportController(log zerolog.Logger, renderer *Renderer, container Container, dispatcher *Dispatcher) *ViewportController {
	v := &ViewportController{log: log, renderer: renderer, container: container}
	dispatcher.Subscribe(EventResize, func(Event) {
		v.Sync()
	})
	return v
}

// Sync applies the container's current dimensions to the renderer.
func (v *ViewportController) Sync() {
	if v.container == nil {
		return
	}
	w, h := v.container.Size()
	v.renderer.SetSize(w, h)
}
