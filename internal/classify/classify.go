package classify

import (
	"strings"
)

// RenderType is the closed taxonomy of device render types. Every raw
// device-type string maps onto exactly one of these; the renderer keys
// color, size, and geometry off it.
type RenderType string

const (
	TypeFortigate   RenderType = "fortigate"
	TypeFortiswitch RenderType = "fortiswitch"
	TypeAccessPoint RenderType = "access_point"
	TypeServer      RenderType = "server"
	TypeEndpoint    RenderType = "endpoint"
)

var allTypes = []RenderType{
	TypeFortigate,
	TypeFortiswitch,
	TypeAccessPoint,
	TypeServer,
	TypeEndpoint,
}

func AllTypes() []RenderType {
	out := make([]RenderType, len(allTypes))
	copy(out, allTypes)
	return out
}

func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var separators = strings.NewReplacer("_", " ", "-", " ")

// Canonical render-type strings like "access_point" must match the
// same rules as their spaced spellings.
func matchable(raw string) string {
	return separators.Replace(Normalize(raw))
}

// Classify maps a free-text device type onto the render taxonomy.
// Matching is case-insensitive substring, first rule wins. Unknown or
// empty input classifies as endpoint.
func Classify(raw string) RenderType {
	t := matchable(raw)
	if t == "" {
		return TypeEndpoint
	}
	switch {
	case strings.Contains(t, "gate") || strings.Contains(t, "firewall"):
		return TypeFortigate
	case strings.Contains(t, "switch"):
		return TypeFortiswitch
	case strings.Contains(t, "access point") || strings.Contains(t, "ap"):
		return TypeAccessPoint
	case strings.Contains(t, "server"):
		return TypeServer
	default:
		return TypeEndpoint
	}
}

// IsGatewayLike reports whether a raw device type names the network
// core (gateway or firewall class hardware). The graph builder uses it
// to pick the hub of a synthesized star topology.
func IsGatewayLike(raw string) bool {
	t := matchable(raw)
	return strings.Contains(t, "gate") || strings.Contains(t, "firewall")
}
