package graph

import "fmt"

// Tier is the ring a node belongs to.
type Tier int

const (
	// Hub is a top-level category, pinned on the innermost ring.
	Hub Tier = iota
	// Category orbits the hubs on the middle ring.
	Category
	// Leaf is a content node (an article) on the outermost ring.
	Leaf
)

func (t Tier) String() string {
	switch t {
	case Hub:
		return "hub"
	case Category:
		return "category"
	case Leaf:
		return "leaf"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts a raw group number into a Tier.
func ParseTier(group int) (Tier, bool) {
	switch Tier(group) {
	case Hub, Category, Leaf:
		return Tier(group), true
	}
	return 0, false
}

// Node is a positioned vertex of the explorable graph.
type Node struct {
	ID    string
	Tier  Tier
	Value float64
	Title string

	// ArticleID is only carried by Leaf nodes.
	ArticleID string

	// Position and velocity, mutated by the layout engine.
	X, Y   float64
	VX, VY float64

	// Fixed nodes are pinned at (FX, FY). Hubs are always fixed.
	Fixed  bool
	FX, FY float64

	positioned bool
}

// Positioned reports whether the node has been given coordinates.
func (n *Node) Positioned() bool { return n.positioned }

// SetPosition moves the node and marks it positioned.
func (n *Node) SetPosition(x, y float64) {
	n.X, n.Y = x, y
	n.positioned = true
}

// Pin fixes the node at (x, y) and zeroes its velocity.
func (n *Node) Pin(x, y float64) {
	n.SetPosition(x, y)
	n.Fixed = true
	n.FX, n.FY = x, y
	n.VX, n.VY = 0, 0
}

// Link is an undirected edge between two nodes.
type Link struct {
	Source NodeRef
	Target NodeRef
}

// SourceID returns the id of the source endpoint.
func (l *Link) SourceID() string { return l.Source.ID() }

// TargetID returns the id of the target endpoint.
func (l *Link) TargetID() string { return l.Target.ID() }

// Other returns the endpoint opposite to id.
func (l *Link) Other(id string) string {
	if l.Source.ID() == id {
		return l.Target.ID()
	}
	return l.Source.ID()
}

// Touches reports whether id is one of the endpoints.
func (l *Link) Touches(id string) bool {
	return l.Source.ID() == id || l.Target.ID() == id
}

// RawNode is the wire shape of a node as delivered by the graph fetch.
type RawNode struct {
	ID        string   `json:"id" yaml:"id"`
	Group     int      `json:"group" yaml:"group"`
	Value     float64  `json:"value" yaml:"value"`
	ArticleID string   `json:"articleId,omitempty" yaml:"articleId,omitempty"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Label     string   `json:"label,omitempty" yaml:"label,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	X         *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y         *float64 `json:"y,omitempty" yaml:"y,omitempty"`
}

// DisplayTitle applies the title fallback chain: title, label, name, id.
func (r RawNode) DisplayTitle() string {
	for _, s := range []string{r.Title, r.Label, r.Name} {
		if s != "" {
			return s
		}
	}
	return r.ID
}

// RawLink is the wire shape of a link. Endpoints may be ids or node objects.
type RawLink struct {
	Source NodeRef `json:"source" yaml:"source"`
	Target NodeRef `json:"target" yaml:"target"`
}

// Payload is the full graph fetch result.
type Payload struct {
	Nodes []RawNode `json:"nodes" yaml:"nodes"`
	Links []RawLink `json:"links" yaml:"links"`
}

// IDSet is a set of node ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Slice returns the members in unspecified order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
