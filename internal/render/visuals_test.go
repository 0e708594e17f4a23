package render

import "testing"

func TestColorFor_Table(t *testing.T) {
	cases := []struct {
		kind string
		want string
	}{
		{"fortigate", ColorFortigate},
		{"fortiswitch", ColorFortiswitch},
		{"switch", ColorFortiswitch},
		{"access_point", ColorAccessPoint},
		{"endpoint", ColorEndpoint},
		{"server", ColorServer},
		{"internet", ColorInternet},
		{"router", ColorRouter},
		{"FORTIGATE", ColorFortigate},
		{"unknown-kind", ColorEndpoint},
	}
	for _, tc := range cases {
		if got := ColorFor(tc.kind); got != tc.want {
			t.Fatalf("ColorFor(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestSizeFor(t *testing.T) {
	if SizeFor("fortigate") <= SizeFor("server") {
		t.Fatal("fortigate nodes must render larger than others")
	}
	if SizeFor("endpoint") != SizeFor("server") {
		t.Fatal("non-core nodes share the default size")
	}
}

func TestGeometryFor_Kinds(t *testing.T) {
	cases := []struct {
		kind string
		want GeometryKind
	}{
		{"fortigate", GeometryBox},
		{"firewall", GeometryBox},
		{"switch", GeometryBox},
		{"fortiswitch", GeometryBox},
		{"access_point", GeometryCylinder},
		{"ap", GeometryCylinder},
		{"server", GeometrySphere},
		{"endpoint", GeometrySphere},
		{"anything-else", GeometrySphere},
	}
	for _, tc := range cases {
		g := GeometryFor(tc.kind, "#ffffff")
		if g.Kind != tc.want {
			t.Fatalf("GeometryFor(%q).Kind = %q, want %q", tc.kind, g.Kind, tc.want)
		}
		if g.Color != "#ffffff" {
			t.Fatalf("geometry must carry the node color, got %q", g.Color)
		}
		if g.Opacity != geometryOpacity {
			t.Fatalf("geometry opacity = %v, want %v", g.Opacity, geometryOpacity)
		}
	}

	fw := GeometryFor("fortigate", "#fff")
	sw := GeometryFor("fortiswitch", "#fff")
	if sw.Height >= fw.Height {
		t.Fatalf("switch box must be flatter than firewall box: %v >= %v", sw.Height, fw.Height)
	}

	ap := GeometryFor("access_point", "#fff")
	if ap.Length >= ap.Radius {
		t.Fatalf("access point cylinder should be short: length %v radius %v", ap.Length, ap.Radius)
	}
}

func TestLabelFor(t *testing.T) {
	l := LabelFor("edge-fw")
	if l.Text != "edge-fw" {
		t.Fatalf("label text = %q", l.Text)
	}
	if l.FontSize != 24 {
		t.Fatalf("label font size = %d, want fixed 24", l.FontSize)
	}
	if l.PaddingX <= 0 || l.PaddingY <= 0 {
		t.Fatalf("label must have padded background box: %+v", l)
	}
	if l.OffsetY >= 0 {
		t.Fatalf("label must sit below the geometry: %v", l.OffsetY)
	}
}

func TestDispatcher_OrderAndIsolation(t *testing.T) {
	d := NewDispatcher()
	var order []int
	d.Subscribe(EventNodeClick, func(Event) { order = append(order, 1) })
	d.Subscribe(EventNodeClick, func(Event) { order = append(order, 2) })
	d.Subscribe(EventResize, func(Event) { order = append(order, 99) })

	d.Publish(Event{Type: EventNodeClick})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected subscribers in order [1 2], got %v", order)
	}
}
