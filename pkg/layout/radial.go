package layout

import (
	"math"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// RadialForce springs every free node toward its tier's ring and pushes
// hard on anything that drifts inside the hub ring.
type RadialForce struct {
	p     RadialParams
	rings graph.Rings
	nodes []*graph.Node
}

// NewRadialForce creates a radial force.
func NewRadialForce(p RadialParams) *RadialForce {
	return &RadialForce{p: p}
}

// Initialize implements Force.
func (f *RadialForce) Initialize(g *graph.Graph) {
	f.rings = g.Rings()
	f.nodes = g.Nodes()
}

// MinRadius is the innermost radius a free node may settle at.
func (f *RadialForce) MinRadius() float64 {
	return f.rings.Hub + f.p.MinPadding
}

func (f *RadialForce) strength(t graph.Tier) float64 {
	if t == graph.Category {
		return f.p.CategoryStrength
	}
	return f.p.LeafStrength
}

// Apply implements Force.
func (f *RadialForce) Apply(alpha float64) {
	minR := f.MinRadius()
	for _, n := range f.nodes {
		if n.Fixed {
			continue
		}
		r := math.Hypot(n.X, n.Y)
		if r < 1e-6 {
			r = 1e-6
		}
		k := (f.rings.Radius(n.Tier) - r) * f.strength(n.Tier) * alpha / r
		n.VX += n.X * k
		n.VY += n.Y * k

		// The floor ignores alpha so nodes cannot collapse late in cooldown.
		if r < minR {
			push := (minR - r) * f.p.FloorStrength / r
			n.VX += n.X * push
			n.VY += n.Y * push
		}
	}
}

// AngularForce nudges nodes tangentially toward the angle of the hub they
// descend from.
type AngularForce struct {
	p       AngularParams
	nodes   []*graph.Node
	targets map[string]float64
}

// NewAngularForce creates an angular force.
func NewAngularForce(p AngularParams) *AngularForce {
	return &AngularForce{p: p}
}

// Initialize implements Force. Hub angles seed the target map and are
// propagated over links for up to Passes rounds; the first assignment wins.
func (f *AngularForce) Initialize(g *graph.Graph) {
	f.nodes = g.Nodes()
	f.targets = make(map[string]float64, len(f.nodes))
	for _, n := range f.nodes {
		if n.Tier == graph.Hub {
			f.targets[n.ID] = math.Atan2(n.Y, n.X)
		}
	}
	links := g.Links()
	for pass := 0; pass < f.p.Passes; pass++ {
		inherited := make(map[string]float64)
		for _, l := range links {
			s, t := l.SourceID(), l.TargetID()
			sa, sok := f.targets[s]
			ta, tok := f.targets[t]
			switch {
			case sok && !tok:
				if _, seen := inherited[t]; !seen {
					inherited[t] = sa
				}
			case tok && !sok:
				if _, seen := inherited[s]; !seen {
					inherited[s] = ta
				}
			}
		}
		if len(inherited) == 0 {
			break
		}
		for id, a := range inherited {
			f.targets[id] = a
		}
	}
}

// Target returns the inherited angle for id.
func (f *AngularForce) Target(id string) (float64, bool) {
	a, ok := f.targets[id]
	return a, ok
}

// Apply implements Force.
func (f *AngularForce) Apply(alpha float64) {
	for _, n := range f.nodes {
		if n.Fixed {
			continue
		}
		target, ok := f.targets[n.ID]
		if !ok {
			continue
		}
		r := math.Hypot(n.X, n.Y)
		if r < 1e-6 {
			continue
		}
		phi := math.Atan2(n.Y, n.X)
		push := AngleDelta(phi, target) * r * f.p.Strength * alpha
		n.VX += -math.Sin(phi) * push
		n.VY += math.Cos(phi) * push
	}
}

// AngleDelta returns the signed shortest rotation from a to b in (-π, π].
func AngleDelta(a, b float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
