package layout

import (
	"math"
	"math/rand"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

func jiggle(rng *rand.Rand) float64 {
	return (rng.Float64() - 0.5) * 1e-6
}

// ChargeForce is pairwise repulsion. Pinned nodes repel others but never
// move themselves.
type ChargeForce struct {
	p     ChargeParams
	rng   *rand.Rand
	nodes []*graph.Node

	nearCenter float64
	maxDist2   float64
}

// NewChargeForce creates a charge force.
func NewChargeForce(p ChargeParams, rng *rand.Rand) *ChargeForce {
	return &ChargeForce{p: p, rng: rng}
}

// Initialize implements Force.
func (f *ChargeForce) Initialize(g *graph.Graph) {
	f.nodes = g.Nodes()
	rings := g.Rings()
	f.nearCenter = rings.Hub + f.p.NearCenterMargin
	maxDist := rings.Leaf + f.p.DistanceMargin
	f.maxDist2 = maxDist * maxDist
}

// Apply implements Force.
func (f *ChargeForce) Apply(alpha float64) {
	minDist2 := f.p.DistanceMin * f.p.DistanceMin
	for i, a := range f.nodes {
		for _, b := range f.nodes[i+1:] {
			if a.Fixed && b.Fixed {
				continue
			}
			dx := b.X - a.X
			dy := b.Y - a.Y
			if dx == 0 {
				dx = jiggle(f.rng)
			}
			if dy == 0 {
				dy = jiggle(f.rng)
			}
			l := dx*dx + dy*dy
			if l >= f.maxDist2 {
				continue
			}
			if l < minDist2 {
				l = math.Sqrt(minDist2 * l)
			}
			strength := f.p.Strength
			if f.near(a) || f.near(b) {
				strength *= f.p.NearCenterBoost
			}
			w := strength * alpha / l
			// Strength is negative, so a moves away from b and vice versa.
			if !a.Fixed {
				a.VX += dx * w
				a.VY += dy * w
			}
			if !b.Fixed {
				b.VX -= dx * w
				b.VY -= dy * w
			}
		}
	}
}

func (f *ChargeForce) near(n *graph.Node) bool {
	if n.Fixed {
		return false
	}
	return math.Hypot(n.X, n.Y) < f.nearCenter
}

// LinkForce is a spring per link with a tier-dependent rest length.
type LinkForce struct {
	p     LinkParams
	rng   *rand.Rand
	links []linkSpring
}

type linkSpring struct {
	source, target *graph.Node
	distance       float64
	strength       float64
	bias           float64
}

// NewLinkForce creates a link force.
func NewLinkForce(p LinkParams, rng *rand.Rand) *LinkForce {
	return &LinkForce{p: p, rng: rng}
}

// Distance returns the rest length for a link between tiers a and b.
func (f *LinkForce) Distance(a, b graph.Tier) float64 {
	if a > b {
		a, b = b, a
	}
	switch {
	case a == graph.Hub && b == graph.Category:
		return f.p.HubCategory
	case a == graph.Category && b == graph.Leaf:
		return f.p.CategoryLeaf
	default:
		return f.p.Fallback
	}
}

// Initialize implements Force.
func (f *LinkForce) Initialize(g *graph.Graph) {
	links := g.Links()
	f.links = f.links[:0]
	for _, l := range links {
		s, t := l.Source.Node(), l.Target.Node()
		if s == nil || t == nil {
			continue
		}
		cs := float64(g.Degree(s.ID))
		ct := float64(g.Degree(t.ID))
		spring := linkSpring{
			source:   s,
			target:   t,
			distance: f.Distance(s.Tier, t.Tier),
			strength: 1 / math.Max(1, math.Min(cs, ct)),
			bias:     cs / (cs + ct),
		}
		switch {
		case s.Fixed && !t.Fixed:
			spring.bias = 1
		case t.Fixed && !s.Fixed:
			spring.bias = 0
		}
		f.links = append(f.links, spring)
	}
}

// Apply implements Force.
func (f *LinkForce) Apply(alpha float64) {
	for _, sp := range f.links {
		s, t := sp.source, sp.target
		if s.Fixed && t.Fixed {
			continue
		}
		x := t.X + t.VX - s.X - s.VX
		y := t.Y + t.VY - s.Y - s.VY
		if x == 0 {
			x = jiggle(f.rng)
		}
		if y == 0 {
			y = jiggle(f.rng)
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - sp.distance) / l * alpha * sp.strength
		x *= l
		y *= l
		if !t.Fixed {
			t.VX -= x * sp.bias
			t.VY -= y * sp.bias
		}
		if !s.Fixed {
			s.VX += x * (1 - sp.bias)
			s.VY += y * (1 - sp.bias)
		}
	}
}
