package topology

import (
	"strings"

	"github.com/rs/zerolog"

	"netmap3d/viz-go/internal/classify"
	"netmap3d/viz-go/internal/inventory"
)

// Node is one device projected into the render graph. It carries a
// fixed core schema plus the record's open metadata bag; it never
// aliases the originating DeviceRecord.
type Node struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Type      classify.RenderType `json:"type"`
	Status    string              `json:"status,omitempty"`
	IPAddress string              `json:"ip_address,omitempty"`
	Vendor    string              `json:"vendor,omitempty"`
	Metadata  map[string]any      `json:"metadata,omitempty"`
}

// Link is a directionless edge between two node ids.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Connection is a caller-supplied edge before normalization. Either the
// source/target or the from/to field pair is accepted.
type Connection struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// Normalize collapses the accepted field aliases into a Link. The
// second return is false when either endpoint is missing.
func (c Connection) Normalize() (Link, bool) {
	src := strings.TrimSpace(c.Source)
	if src == "" {
		src = strings.TrimSpace(c.From)
	}
	dst := strings.TrimSpace(c.Target)
	if dst == "" {
		dst = strings.TrimSpace(c.To)
	}
	if src == "" || dst == "" {
		return Link{}, false
	}
	return Link{Source: src, Target: dst}, true
}

// Metadata summarizes a built graph for the dashboard shell.
type Metadata struct {
	TotalDevices int    `json:"total_devices"`
	TotalLinks   int    `json:"total_links"`
	Synthesized  bool   `json:"synthesized"`
	CoreID       string `json:"core_id,omitempty"`
}

// Graph is an immutable node+link snapshot. A new Build replaces the
// whole graph; nothing patches one in place.
type Graph struct {
	Nodes []Node   `json:"nodes"`
	Links []Link   `json:"links"`
	Meta  Metadata `json:"metadata"`
}

// Builder converts device records into render graphs.
type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// Build projects devices into a graph. When connections are supplied
// they are normalized and used verbatim, with links referencing unknown
// node ids dropped. Without connections a star topology is synthesized
// around the core device: the first gateway-like device in input order,
// or the first device when none qualifies.
func (b *Builder) Build(devices []inventory.DeviceRecord, connections []Connection) Graph {
	if len(devices) == 0 {
		return Graph{Nodes: []Node{}, Links: []Link{}}
	}

	nodes := make([]Node, 0, len(devices))
	known := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if d.ID == "" {
			b.log.Warn().Str("device_type", d.DeviceType).Msg("device record without id skipped")
			continue
		}
		if _, dup := known[d.ID]; dup {
			b.log.Warn().Str("device_id", d.ID).Msg("duplicate device id skipped")
			continue
		}
		known[d.ID] = struct{}{}
		nodes = append(nodes, projectNode(d))
	}

	graph := Graph{
		Nodes: nodes,
		Links: []Link{},
		Meta:  Metadata{TotalDevices: len(nodes)},
	}
	if len(nodes) == 0 {
		return graph
	}

	if len(connections) > 0 {
		graph.Links = b.normalizeLinks(connections, known)
		graph.Meta.TotalLinks = len(graph.Links)
		return graph
	}

	core := selectCore(nodes)
	graph.Meta.CoreID = core
	graph.Meta.Synthesized = true
	for _, n := range nodes {
		if n.ID == core {
			continue
		}
		graph.Links = append(graph.Links, Link{Source: core, Target: n.ID})
	}
	graph.Meta.TotalLinks = len(graph.Links)
	return graph
}

func projectNode(d inventory.DeviceRecord) Node {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = d.ID
	}
	n := Node{
		ID:        d.ID,
		Name:      name,
		Type:      classify.Classify(d.DeviceType),
		Status:    d.Status,
		IPAddress: d.IPAddress,
		Vendor:    d.Vendor,
	}
	if len(d.Metadata) > 0 {
		n.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			n.Metadata[k] = v
		}
	}
	return n
}

// selectCore picks the hub for the synthesized star: the first node
// classified fortigate, else the first node in input order.
func selectCore(nodes []Node) string {
	for _, n := range nodes {
		if n.Type == classify.TypeFortigate {
			return n.ID
		}
	}
	return nodes[0].ID
}

func (b *Builder) normalizeLinks(connections []Connection, known map[string]struct{}) []Link {
	out := make([]Link, 0, len(connections))
	for _, c := range connections {
		link, ok := c.Normalize()
		if !ok {
			b.log.Warn().Msg("connection without both endpoints dropped")
			continue
		}
		if _, ok := known[link.Source]; !ok {
			b.log.Warn().Str("source", link.Source).Str("target", link.Target).Msg("link references unknown source node, dropped")
			continue
		}
		if _, ok := known[link.Target]; !ok {
			b.log.Warn().Str("source", link.Source).Str("target", link.Target).Msg("link references unknown target node, dropped")
			continue
		}
		out = append(out, link)
	}
	return out
}
