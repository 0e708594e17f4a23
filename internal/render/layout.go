package render

import (
	"hash/fnv"
	"math"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Bounds is the axis-aligned box around every node position; the
// camera fit targets it.
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

func (b Bounds) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

func (b Bounds) Radius() float64 {
	return b.Max.sub(b.Min).length() / 2
}

// Force simulation constants. Tuned for graphs in the tens-of-nodes
// range a site topology produces.
const (
	chargeStrength  = 1800.0
	springStiffness = 0.02
	springRestLen   = 40.0
	centerPull      = 0.012
	velocityDecay   = 0.85
	seedRadius      = 60.0
	minDistance     = 0.01
)

// layoutPositions runs a deterministic force-directed simulation:
// charge repulsion between every node pair, spring attraction along
// links, and a weak centering pull. Initial positions are seeded from
// the node id hash, so identical input always yields identical layout.
func layoutPositions(ids []string, links [][2]int, ticks int) []Vec3 {
	n := len(ids)
	if n == 0 {
		return nil
	}

	pos := make([]Vec3, n)
	vel := make([]Vec3, n)
	for i, id := range ids {
		pos[i] = seedPosition(id)
	}

	force := make([]Vec3, n)
	for t := 0; t < ticks; t++ {
		for i := range force {
			force[i] = Vec3{}
		}

		// Pairwise repulsion.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				delta := pos[i].sub(pos[j])
				d := delta.length()
				if d < minDistance {
					// Coincident nodes get nudged apart along a stable axis.
					delta = Vec3{X: 0.1 * float64(i-j)}
					d = delta.length()
				}
				f := delta.scale(chargeStrength / (d * d * d))
				force[i] = force[i].add(f)
				force[j] = force[j].sub(f)
			}
		}

		// Link springs.
		for _, l := range links {
			a, b := l[0], l[1]
			delta := pos[b].sub(pos[a])
			d := delta.length()
			if d < minDistance {
				continue
			}
			f := delta.scale(springStiffness * (d - springRestLen) / d)
			force[a] = force[a].add(f)
			force[b] = force[b].sub(f)
		}

		// Centering.
		for i := 0; i < n; i++ {
			force[i] = force[i].sub(pos[i].scale(centerPull))
		}

		for i := 0; i < n; i++ {
			vel[i] = vel[i].add(force[i]).scale(velocityDecay)
			pos[i] = pos[i].add(vel[i])
		}
	}

	return pos
}

// seedPosition places a node on a sphere surface pseudo-randomly but
// deterministically from its id.
func seedPosition(id string) Vec3 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum64()

	// Two independent angles from the hash halves.
	theta := 2 * math.Pi * float64(uint32(sum)) / float64(math.MaxUint32)
	phi := math.Acos(2*float64(uint32(sum>>32))/float64(math.MaxUint32) - 1)

	return Vec3{
		X: seedRadius * math.Sin(phi) * math.Cos(theta),
		Y: seedRadius * math.Sin(phi) * math.Sin(theta),
		Z: seedRadius * math.Cos(phi),
	}
}

// boundsOf pads the node bounding box by each node's visual size so
// geometry edges stay inside the camera frame.
func boundsOf(pos []Vec3, sizes []float64) Bounds {
	if len(pos) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: pos[0], Max: pos[0]}
	for i, p := range pos {
		pad := 0.0
		if i < len(sizes) {
			pad = sizes[i]
		}
		b.Min.X = math.Min(b.Min.X, p.X-pad)
		b.Min.Y = math.Min(b.Min.Y, p.Y-pad)
		b.Min.Z = math.Min(b.Min.Z, p.Z-pad)
		b.Max.X = math.Max(b.Max.X, p.X+pad)
		b.Max.Y = math.Max(b.Max.Y, p.Y+pad)
		b.Max.Z = math.Max(b.Max.Z, p.Z+pad)
	}
	return b
}
