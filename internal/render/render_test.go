package render

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"netmap3d/viz-go/internal/classify"
	"netmap3d/viz-go/internal/topology"
)

// recordingEngine captures engine calls for assertions.
type recordingEngine struct {
	mu          sync.Mutex
	acquireErr  error
	sizes       [][2]int
	backgrounds []string
	applied     []Snapshot
	fits        []Bounds
}

func (e *recordingEngine) AcquireSurface(w, h int) error {
	return e.acquireErr
}

func (e *recordingEngine) SetSize(w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sizes = append(e.sizes, [2]int{w, h})
}

func (e *recordingEngine) SetBackground(c string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backgrounds = append(e.backgrounds, c)
}

func (e *recordingEngine) Apply(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = append(e.applied, s)
}

func (e *recordingEngine) CameraFit(b Bounds, _ float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fits = append(e.fits, b)
}

func (e *recordingEngine) fitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fits)
}

func newTestRenderer(t *testing.T, engine Engine) (*Renderer, *Dispatcher) {
	t.Helper()
	d := NewDispatcher()
	r := New(zerolog.Nop(), d, Options{
		Engine:      engine,
		SettleDelay: time.Millisecond,
		LayoutTicks: 30,
	})
	return r, d
}

func sampleData() GraphData {
	return GraphData{
		Nodes: []topology.Node{
			{ID: "fw1", Name: "edge-fw", Type: classify.TypeFortigate},
			{ID: "sw1", Name: "sw1", Type: classify.TypeFortiswitch},
			{ID: "ap1", Name: "ap1", Type: classify.TypeAccessPoint},
		},
		Links: []topology.Connection{
			{Source: "fw1", Target: "sw1"},
			{Source: "sw1", Target: "ap1"},
		},
	}
}

func TestRenderer_StateMachine(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})

	if r.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %q", r.State())
	}
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if r.State() != StateReady || !r.Ready() {
		t.Fatalf("expected ready after init, got %q", r.State())
	}
	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if r.State() != StateDataLoaded {
		t.Fatalf("expected data_loaded, got %q", r.State())
	}
	// LoadData is valid again from DataLoaded.
	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("second LoadData: %v", err)
	}
	if r.State() != StateDataLoaded {
		t.Fatalf("expected data_loaded after reload, got %q", r.State())
	}
}

func TestRenderer_EngineUnavailable(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	if err := r.Init(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if r.Ready() {
		t.Fatal("renderer must stay unready without an engine")
	}
	if err := r.LoadData(sampleData()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if r.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %q", r.State())
	}
}

func TestRenderer_SurfaceAcquisitionFailure(t *testing.T) {
	eng := &recordingEngine{acquireErr: errors.New("no webgl context")}
	r, _ := newTestRenderer(t, eng)

	if err := r.Init(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if r.Ready() {
		t.Fatal("renderer must stay unready after surface failure")
	}
}

func TestRenderer_LoadDataIdempotent(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	first := r.Snapshot()

	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	second := r.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ for structurally identical input:\n%+v\n%+v", first, second)
	}
}

func TestRenderer_LegacyAliases(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data := sampleData()
	legacy := GraphData{Devices: data.Nodes, Connections: data.Links}
	if err := r.LoadData(legacy); err != nil {
		t.Fatalf("LoadData with legacy aliases: %v", err)
	}
	snap := r.Snapshot()
	if len(snap.Objects) != 3 || len(snap.Links) != 2 {
		t.Fatalf("legacy payload not normalized: %d objects, %d links", len(snap.Objects), len(snap.Links))
	}
}

func TestRenderer_FromToLinkFields(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data := GraphData{
		Nodes: []topology.Node{{ID: "a", Type: classify.TypeServer}, {ID: "b", Type: classify.TypeEndpoint}},
		Links: []topology.Connection{{From: "a", To: "b"}},
	}
	if err := r.LoadData(data); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	snap := r.Snapshot()
	if len(snap.Links) != 1 || snap.Links[0] != (LinkVisual{Source: "a", Target: "b"}) {
		t.Fatalf("from/to link not normalized: %+v", snap.Links)
	}
}

func TestRenderer_UnknownEndpointLinkDropped(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data := GraphData{
		Nodes: []topology.Node{{ID: "a"}, {ID: "b"}},
		Links: []topology.Connection{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "ghost"},
		},
	}
	if err := r.LoadData(data); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	snap := r.Snapshot()
	if len(snap.Links) != 1 {
		t.Fatalf("expected the malformed link to be dropped, got %d links", len(snap.Links))
	}
}

func TestRenderer_ObjectsHoldIDsOnly(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	snap := r.Snapshot()
	ids := map[string]bool{"fw1": true, "sw1": true, "ap1": true}
	for _, o := range snap.Objects {
		if !ids[o.NodeID] {
			t.Fatalf("object references unknown node id %q", o.NodeID)
		}
	}
}

func TestRenderer_VisualAccessors(t *testing.T) {
	r, _ := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	snap := r.Snapshot()

	byID := map[string]Object{}
	for _, o := range snap.Objects {
		byID[o.NodeID] = o
	}

	fw := byID["fw1"]
	if fw.Color != ColorFortigate {
		t.Fatalf("fortigate color = %q, want %q", fw.Color, ColorFortigate)
	}
	if fw.Geometry.Kind != GeometryBox {
		t.Fatalf("fortigate geometry = %q, want box", fw.Geometry.Kind)
	}
	if fw.Label.Text != "edge-fw" {
		t.Fatalf("label text = %q, want display name", fw.Label.Text)
	}
	if fw.Label.OffsetY >= 0 {
		t.Fatalf("label must sit below the geometry, offset %v", fw.Label.OffsetY)
	}

	sw := byID["sw1"]
	if sw.Geometry.Kind != GeometryBox || sw.Geometry.Height >= fw.Geometry.Height {
		t.Fatalf("switch geometry must be a flatter box: %+v vs %+v", sw.Geometry, fw.Geometry)
	}
	if sw.Color != ColorFortiswitch {
		t.Fatalf("switch color = %q, want %q", sw.Color, ColorFortiswitch)
	}

	ap := byID["ap1"]
	if ap.Geometry.Kind != GeometryCylinder {
		t.Fatalf("access point geometry = %q, want cylinder", ap.Geometry.Kind)
	}

	// Core sizing: fortigate larger than every other node.
	for id, o := range byID {
		if id == "fw1" {
			continue
		}
		if o.Size >= fw.Size {
			t.Fatalf("node %s size %v must be smaller than fortigate %v", id, o.Size, fw.Size)
		}
	}

	for _, o := range snap.Objects {
		if o.Geometry.Opacity >= 1 || o.Geometry.Opacity <= 0 {
			t.Fatalf("geometry must use reduced opacity, got %v", o.Geometry.Opacity)
		}
		if o.Geometry.Color != o.Color {
			t.Fatalf("geometry color %q must match node color %q", o.Geometry.Color, o.Color)
		}
	}
}

func TestRenderer_CameraFitAfterSettle(t *testing.T) {
	eng := &recordingEngine{}
	r, d := newTestRenderer(t, eng)
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	fitDone := make(chan struct{}, 1)
	d.Subscribe(EventCameraFit, func(Event) {
		select {
		case fitDone <- struct{}{}:
		default:
		}
	})

	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	select {
	case <-fitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("camera fit never fired")
	}
	if eng.fitCount() == 0 {
		t.Fatal("engine never received CameraFit")
	}
}

func TestRenderer_ResizeSetsExactPixelBox(t *testing.T) {
	eng := &recordingEngine{}
	r, d := newTestRenderer(t, eng)
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	d.Publish(Event{Type: EventResize, Width: 1280, Height: 720})

	snap := r.Snapshot()
	if snap.Width != 1280 || snap.Height != 720 {
		t.Fatalf("snapshot dimensions %dx%d, want 1280x720", snap.Width, snap.Height)
	}
	eng.mu.Lock()
	defer eng.mu.Unlock()
	last := eng.sizes[len(eng.sizes)-1]
	if last != [2]int{1280, 720} {
		t.Fatalf("engine size %v, want [1280 720]", last)
	}
}

func TestViewportController_SyncFromContainer(t *testing.T) {
	eng := &recordingEngine{}
	r, d := newTestRenderer(t, eng)
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	c := &fakeContainer{w: 800, h: 450}
	NewViewportController(zerolog.Nop(), r, c, d)

	c.w, c.h = 1024, 640
	d.Publish(Event{Type: EventResize})

	snap := r.Snapshot()
	if snap.Width != 1024 || snap.Height != 640 {
		t.Fatalf("viewport did not sync container box, got %dx%d", snap.Width, snap.Height)
	}
}

type fakeContainer struct{ w, h int }

func (c *fakeContainer) Size() (int, int) { return c.w, c.h }

func TestRenderer_NodeClickDispatch(t *testing.T) {
	r, d := newTestRenderer(t, &recordingEngine{})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var clicked string
	d.Subscribe(EventNodeClick, func(e Event) { clicked = e.NodeID })

	r.HandleNodeClick("fw1")
	if clicked != "fw1" {
		t.Fatalf("expected click dispatch for fw1, got %q", clicked)
	}
}

func TestRenderer_NewLoadWinsFitRace(t *testing.T) {
	eng := &recordingEngine{}
	d := NewDispatcher()
	r := New(zerolog.Nop(), d, Options{
		Engine:      eng,
		SettleDelay: 50 * time.Millisecond,
		LayoutTicks: 10,
	})
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := r.LoadData(sampleData()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	// Replace the graph before the first settle elapses; only the
	// second load's fit should fire.
	single := GraphData{Nodes: []topology.Node{{ID: "only"}}}
	if err := r.LoadData(single); err != nil {
		t.Fatalf("second load: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := eng.fitCount(); got != 1 {
		t.Fatalf("expected exactly one camera fit, got %d", got)
	}
}
