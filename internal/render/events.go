package render

import "sync"

// EventType names the interaction events the renderer core exchanges
// with its host shell. The dispatcher decouples the core from any
// particular UI toolkit so the render logic stays headless-testable.
type EventType string

const (
	EventResize      EventType = "resize"
	EventNodeClick   EventType = "node_click"
	EventGraphLoaded EventType = "graph_loaded"
	EventCameraFit   EventType = "camera_fit"
)

type Event struct {
	Type   EventType
	NodeID string
	Width  int
	Height int
}

// Dispatcher is a synchronous observer registry. Publish invokes
// subscribers in subscription order on the caller's goroutine, which
// preserves the dispatch ordering the scene relies on.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[EventType][]func(Event)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[EventType][]func(Event))}
}

func (d *Dispatcher) Subscribe(t EventType, fn func(Event)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.subs[t] = append(d.subs[t], fn)
	d.mu.Unlock()
}

func (d *Dispatcher) Publish(e Event) {
	d.mu.RLock()
	subs := make([]func(Event), len(d.subs[e.Type]))
	copy(subs, d.subs[e.Type])
	d.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
