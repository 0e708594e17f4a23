package render

import (
	"strings"

	"netmap3d/viz-go/internal/classify"
)

// Fixed node color table. The dashboard's legend and any external
// styling reproduce these values, so they must not drift.
const (
	ColorFortigate   = "#3b82f6" // primary blue
	ColorFortiswitch = "#10b981" // green
	ColorAccessPoint = "#8b5cf6" // purple
	ColorEndpoint    = "#64748b" // slate gray
	ColorServer      = "#ef4444" // red
	ColorInternet    = "#06b6d4" // cyan
	ColorRouter      = "#f59e0b" // amber
)

var colorTable = map[string]string{
	"fortigate":    ColorFortigate,
	"fortiswitch":  ColorFortiswitch,
	"switch":       ColorFortiswitch,
	"access_point": ColorAccessPoint,
	"endpoint":     ColorEndpoint,
	"server":       ColorServer,
	"internet":     ColorInternet,
	"router":       ColorRouter,
}

// ColorFor maps a render type (or raw synonym) to its scene color.
// Unknown kinds fall back to the endpoint slate.
func ColorFor(kind string) string {
	if c, ok := colorTable[classify.Normalize(kind)]; ok {
		return c
	}
	return ColorEndpoint
}

const (
	sizeCore    = 10.0
	sizeDefault = 6.0
)

// SizeFor returns the node's visual scale. Core firewalls render
// larger than everything else.
func SizeFor(kind string) float64 {
	if classify.Classify(kind) == classify.TypeFortigate {
		return sizeCore
	}
	return sizeDefault
}

type GeometryKind string

const (
	GeometryBox      GeometryKind = "box"
	GeometryCylinder GeometryKind = "cylinder"
	GeometrySphere   GeometryKind = "sphere"
)

const geometryOpacity = 0.75

// Geometry describes a node's placeholder solid. Box dimensions use
// Width/Height/Depth, cylinders Radius/Length, spheres Radius.
type Geometry struct {
	Kind    GeometryKind `json:"kind"`
	Width   float64      `json:"width,omitempty"`
	Height  float64      `json:"height,omitempty"`
	Depth   float64      `json:"depth,omitempty"`
	Radius  float64      `json:"radius,omitempty"`
	Length  float64      `json:"length,omitempty"`
	Color   string       `json:"color"`
	Opacity float64      `json:"opacity"`
}

// GeometryFor selects the placeholder solid for a device kind: a box
// for firewalls, a flatter box for switches, a short cylinder for
// access points, and a sphere for everything else.
func GeometryFor(kind, color string) Geometry {
	k := strings.NewReplacer("_", " ", "-", " ").Replace(classify.Normalize(kind))
	switch {
	case strings.Contains(k, "gate") || strings.Contains(k, "firewall"):
		return Geometry{Kind: GeometryBox, Width: 12, Height: 4, Depth: 8, Color: color, Opacity: geometryOpacity}
	case strings.Contains(k, "switch"):
		return Geometry{Kind: GeometryBox, Width: 12, Height: 2.5, Depth: 8, Color: color, Opacity: geometryOpacity}
	case strings.Contains(k, "access point") || strings.Contains(k, "ap"):
		return Geometry{Kind: GeometryCylinder, Radius: 4, Length: 2, Color: color, Opacity: geometryOpacity}
	default:
		return Geometry{Kind: GeometrySphere, Radius: 5, Color: color, Opacity: geometryOpacity}
	}
}

// Label is the text sprite rendered below a node's geometry: fixed
// font, padded background box, centered text.
type Label struct {
	Text       string  `json:"text"`
	FontSize   int     `json:"font_size"`
	PaddingX   float64 `json:"padding_x"`
	PaddingY   float64 `json:"padding_y"`
	Background string  `json:"background"`
	TextColor  string  `json:"text_color"`
	OffsetY    float64 `json:"offset_y"`
}

func LabelFor(text string) Label {
	return Label{
		Text:       text,
		FontSize:   24,
		PaddingX:   6,
		PaddingY:   3,
		Background: "rgba(15, 23, 42, 0.82)",
		TextColor:  "#e2e8f0",
		OffsetY:    -10,
	}
}

// Object is one node's renderer-owned visual composite. It references
// the node by id only; graph and scene lifetimes stay independent.
type Object struct {
	NodeID   string   `json:"node_id"`
	Kind     string   `json:"kind"`
	Color    string   `json:"color"`
	Size     float64  `json:"size"`
	Geometry Geometry `json:"geometry"`
	Label    Label    `json:"label"`
	Position Vec3     `json:"position"`
}

// LinkStyle holds the scene-wide defaults applied to every link.
type LinkStyle struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Width   float64 `json:"width"`
}

// LinkVisual is one rendered edge, endpoints by node id.
type LinkVisual struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
