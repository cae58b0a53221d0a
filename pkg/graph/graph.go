// Package graph normalizes raw node/link records into the typed, tiered
// graph the explorer lays out and renders.
package graph

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Rings holds the target radius of each tier.
type Rings struct {
	Hub      float64 `json:"hub" yaml:"hub" toml:"hub"`
	Category float64 `json:"category" yaml:"category" toml:"category"`
	Leaf     float64 `json:"leaf" yaml:"leaf" toml:"leaf"`
}

// DefaultRings returns the standard nested ring radii.
func DefaultRings() Rings {
	return Rings{Hub: 120, Category: 260, Leaf: 420}
}

// Radius returns the target radius for t.
func (r Rings) Radius(t Tier) float64 {
	switch t {
	case Hub:
		return r.Hub
	case Category:
		return r.Category
	default:
		return r.Leaf
	}
}

// Options configures Build.
type Options struct {
	IncludeSynthetic bool
	Rings            Rings
	Rand             *rand.Rand
	Logger           *zap.Logger
}

func (o *Options) withDefaults() Options {
	d := Options{Rings: DefaultRings()}
	if o == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
		d.Logger = zap.NewNop()
		return d
	}
	d.IncludeSynthetic = o.IncludeSynthetic
	if o.Rings.Hub > 0 {
		d.Rings.Hub = o.Rings.Hub
	}
	if o.Rings.Category > 0 {
		d.Rings.Category = o.Rings.Category
	}
	if o.Rings.Leaf > 0 {
		d.Rings.Leaf = o.Rings.Leaf
	}
	d.Rand = o.Rand
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d.Logger = o.Logger
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Report summarizes what ingestion dropped or added.
type Report struct {
	SkippedNodes   int `json:"skipped_nodes"`
	DroppedLinks   int `json:"dropped_links"`
	PrunedNodes    int `json:"pruned_nodes"`
	SyntheticAdded int `json:"synthetic_added"`
}

// Graph is an immutable-topology graph with mutable node positions.
type Graph struct {
	nodes map[string]*Node
	order []string
	links []*Link
	adj   map[string][]*Link
	rings Rings
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		adj:   make(map[string][]*Link),
		rings: DefaultRings(),
	}
}

// Build ingests raw records. It never fails: malformed records are skipped
// and counted in the report.
func Build(rawNodes []RawNode, rawLinks []RawLink, opts *Options) (*Graph, Report) {
	o := opts.withDefaults()
	var rep Report

	g := Empty()
	g.rings = o.Rings

	staged := make(map[string]*Node, len(rawNodes))
	var order []string
	stage := func(r RawNode) bool {
		if r.ID == "" {
			rep.SkippedNodes++
			o.Logger.Warn("skipping node without id", zap.String("title", r.DisplayTitle()))
			return false
		}
		tier, ok := ParseTier(r.Group)
		if !ok {
			rep.SkippedNodes++
			o.Logger.Warn("skipping node with unknown group", zap.String("id", r.ID), zap.Int("group", r.Group))
			return false
		}
		if _, dup := staged[r.ID]; dup {
			rep.SkippedNodes++
			o.Logger.Warn("skipping duplicate node", zap.String("id", r.ID))
			return false
		}
		n := &Node{
			ID:    r.ID,
			Tier:  tier,
			Value: r.Value,
			Title: r.DisplayTitle(),
		}
		if tier == Leaf {
			n.ArticleID = r.ArticleID
		}
		if r.X != nil && r.Y != nil {
			n.SetPosition(*r.X, *r.Y)
		}
		staged[r.ID] = n
		order = append(order, r.ID)
		return true
	}

	for _, r := range rawNodes {
		stage(r)
	}
	links := append([]RawLink(nil), rawLinks...)

	if o.IncludeSynthetic {
		syn := Synthetic()
		for _, r := range syn.Nodes {
			if _, exists := staged[r.ID]; exists {
				continue
			}
			if stage(r) {
				rep.SyntheticAdded++
			}
		}
		links = append(links, syn.Links...)
	}

	// Only links whose endpoints both exist count towards degree, so a
	// single pass reaches the fixed point.
	type pair struct{ a, b string }
	seen := make(map[pair]bool, len(links))
	degree := make(map[string]int, len(staged))
	var valid []RawLink
	for _, l := range links {
		s, t := l.Source.ID(), l.Target.ID()
		_, okS := staged[s]
		_, okT := staged[t]
		if !okS || !okT || s == t {
			rep.DroppedLinks++
			continue
		}
		key := pair{s, t}
		if t < s {
			key = pair{t, s}
		}
		if seen[key] {
			rep.DroppedLinks++
			continue
		}
		seen[key] = true
		degree[s]++
		degree[t]++
		valid = append(valid, l)
	}

	for _, id := range order {
		if degree[id] == 0 {
			rep.PrunedNodes++
			continue
		}
		g.nodes[id] = staged[id]
		g.order = append(g.order, id)
	}

	for _, l := range valid {
		link := &Link{
			Source: RefNode(g.nodes[l.Source.ID()]),
			Target: RefNode(g.nodes[l.Target.ID()]),
		}
		g.links = append(g.links, link)
		g.adj[link.SourceID()] = append(g.adj[link.SourceID()], link)
		g.adj[link.TargetID()] = append(g.adj[link.TargetID()], link)
	}

	g.seedPositions(o.Rand)

	if rep.SkippedNodes > 0 || rep.PrunedNodes > 0 || rep.DroppedLinks > 0 {
		o.Logger.Debug("graph ingested with drops",
			zap.Int("nodes", len(g.order)),
			zap.Int("links", len(g.links)),
			zap.Int("skipped", rep.SkippedNodes),
			zap.Int("pruned", rep.PrunedNodes),
			zap.Int("dropped_links", rep.DroppedLinks))
	}
	return g, rep
}

// seedPositions pins hubs evenly on the hub circle and drops the other
// tiers on their ring at a random angle so the simulation starts close to
// the converged layout.
func (g *Graph) seedPositions(rng *rand.Rand) {
	var hubs []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Tier == Hub {
			hubs = append(hubs, n)
		}
	}
	for i, n := range hubs {
		angle := 2 * math.Pi * float64(i) / float64(len(hubs))
		n.Pin(g.rings.Hub*math.Cos(angle), g.rings.Hub*math.Sin(angle))
	}
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Tier == Hub || n.Positioned() {
			continue
		}
		r := g.rings.Radius(n.Tier)
		angle := rng.Float64() * 2 * math.Pi
		n.SetPosition(r*math.Cos(angle), r*math.Sin(angle))
	}
}

// Rings returns the ring radii the graph was seeded with.
func (g *Graph) Rings() Rings { return g.rings }

// Len returns the node count.
func (g *Graph) Len() int { return len(g.order) }

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns nodes in ingestion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Links returns the links in ingestion order.
func (g *Graph) Links() []*Link { return g.links }

// Degree returns the number of incident links.
func (g *Graph) Degree(id string) int { return len(g.adj[id]) }

// Incident returns the links touching id.
func (g *Graph) Incident(id string) []*Link { return g.adj[id] }

// Neighbors returns the ids directly linked to id.
func (g *Graph) Neighbors(id string) []string {
	links := g.adj[id]
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Other(id))
	}
	return out
}

// Neighborhood is a one-hop highlight set.
type Neighborhood struct {
	Nodes IDSet
	Links map[*Link]struct{}
}

// NeighborhoodOf returns id itself, every node directly linked to it and
// the connecting links. It is not transitive.
func (g *Graph) NeighborhoodOf(id string) Neighborhood {
	nb := Neighborhood{Nodes: NewIDSet(), Links: make(map[*Link]struct{})}
	if _, ok := g.nodes[id]; !ok {
		return nb
	}
	nb.Nodes.Add(id)
	for _, l := range g.adj[id] {
		nb.Nodes.Add(l.Other(id))
		nb.Links[l] = struct{}{}
	}
	return nb
}

// Bounds returns the bounding box of the positioned nodes among ids.
// ok is false when none of them has a position yet.
func (g *Graph) Bounds(ids []string) (minX, minY, maxX, maxY float64, ok bool) {
	for _, id := range ids {
		n, exists := g.nodes[id]
		if !exists || !n.Positioned() {
			continue
		}
		if !ok {
			minX, maxX, minY, maxY = n.X, n.X, n.Y, n.Y
			ok = true
			continue
		}
		minX = math.Min(minX, n.X)
		maxX = math.Max(maxX, n.X)
		minY = math.Min(minY, n.Y)
		maxY = math.Max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY, ok
}

// IDs returns every node id in ingestion order.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}
