// Package render turns a laid-out graph plus highlight and camera state
// into drawable sprites. Every function here is pure: nothing in the graph
// or highlight state is mutated while composing a frame.
package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/highlight"
)

// Palette holds hex colors.
type Palette struct {
	Background string `json:"background" yaml:"background" toml:"background"`
	Label      string `json:"label" yaml:"label" toml:"label"`

	Hub      string `json:"hub" yaml:"hub" toml:"hub"`
	Category string `json:"category" yaml:"category" toml:"category"`
	Leaf     string `json:"leaf" yaml:"leaf" toml:"leaf"`

	HubActive      string `json:"hubActive" yaml:"hubActive" toml:"hub_active"`
	CategoryActive string `json:"categoryActive" yaml:"categoryActive" toml:"category_active"`
	LeafActive     string `json:"leafActive" yaml:"leafActive" toml:"leaf_active"`

	Dimmed string `json:"dimmed" yaml:"dimmed" toml:"dimmed"`

	RelevanceLow  string `json:"relevanceLow" yaml:"relevanceLow" toml:"relevance_low"`
	RelevanceHigh string `json:"relevanceHigh" yaml:"relevanceHigh" toml:"relevance_high"`

	Link       string `json:"link" yaml:"link" toml:"link"`
	LinkActive string `json:"linkActive" yaml:"linkActive" toml:"link_active"`
}

// DefaultPalette is the dark explorer theme.
func DefaultPalette() Palette {
	return Palette{
		Background:     "#0b0e14",
		Label:          "#eaeef3",
		Hub:            "#f59e0b",
		Category:       "#6ea8fe",
		Leaf:           "#94a3b8",
		HubActive:      "#fbbf24",
		CategoryActive: "#3b82f6",
		LeafActive:     "#e2e8f0",
		Dimmed:         "#1f2630",
		RelevanceLow:   "#64748b",
		RelevanceHigh:  "#22d3ee",
		Link:           "#39424e",
		LinkActive:     "#cbd5e1",
	}
}

func (p Palette) merge(o Palette) Palette {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return Palette{
		Background:     pick(p.Background, o.Background),
		Label:          pick(p.Label, o.Label),
		Hub:            pick(p.Hub, o.Hub),
		Category:       pick(p.Category, o.Category),
		Leaf:           pick(p.Leaf, o.Leaf),
		HubActive:      pick(p.HubActive, o.HubActive),
		CategoryActive: pick(p.CategoryActive, o.CategoryActive),
		LeafActive:     pick(p.LeafActive, o.LeafActive),
		Dimmed:         pick(p.Dimmed, o.Dimmed),
		RelevanceLow:   pick(p.RelevanceLow, o.RelevanceLow),
		RelevanceHigh:  pick(p.RelevanceHigh, o.RelevanceHigh),
		Link:           pick(p.Link, o.Link),
		LinkActive:     pick(p.LinkActive, o.LinkActive),
	}
}

// FadeWindow is the zoom range over which labels fade in.
type FadeWindow struct {
	Start float64 `json:"start" yaml:"start" toml:"start"`
	End   float64 `json:"end" yaml:"end" toml:"end"`
}

// Opacity maps zoom linearly from 0 at Start to 1 at End, clamped.
func (w FadeWindow) Opacity(zoom float64) float64 {
	if w.End <= w.Start {
		if zoom >= w.Start {
			return 1
		}
		return 0
	}
	return clamp01((zoom - w.Start) / (w.End - w.Start))
}

// Options configures a Pipeline.
type Options struct {
	Palette Palette `json:"palette" yaml:"palette" toml:"palette"`

	RadiusScale float64 `json:"radiusScale" yaml:"radiusScale" toml:"radius_scale"`

	CategoryLabels FadeWindow `json:"categoryLabels" yaml:"categoryLabels" toml:"category_labels"`
	LeafLabels     FadeWindow `json:"leafLabels" yaml:"leafLabels" toml:"leaf_labels"`

	LinkWidth       float64 `json:"linkWidth" yaml:"linkWidth" toml:"link_width"`
	LinkActiveWidth float64 `json:"linkActiveWidth" yaml:"linkActiveWidth" toml:"link_active_width"`
	Particles       int     `json:"particles" yaml:"particles" toml:"particles"`
}

// DefaultOptions returns the standard rendering options.
func DefaultOptions() Options {
	return Options{
		Palette:         DefaultPalette(),
		RadiusScale:     4,
		CategoryLabels:  FadeWindow{Start: 0.6, End: 1.2},
		LeafLabels:      FadeWindow{Start: 1.4, End: 2.2},
		LinkWidth:       0.6,
		LinkActiveWidth: 2,
		Particles:       4,
	}
}

func (o *Options) withDefaults() Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	d.Palette = d.Palette.merge(o.Palette)
	if o.RadiusScale > 0 {
		d.RadiusScale = o.RadiusScale
	}
	if o.CategoryLabels != (FadeWindow{}) {
		d.CategoryLabels = o.CategoryLabels
	}
	if o.LeafLabels != (FadeWindow{}) {
		d.LeafLabels = o.LeafLabels
	}
	if o.LinkWidth > 0 {
		d.LinkWidth = o.LinkWidth
	}
	if o.LinkActiveWidth > 0 {
		d.LinkActiveWidth = o.LinkActiveWidth
	}
	if o.Particles > 0 {
		d.Particles = o.Particles
	}
	return d
}

func parseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// RelevanceColor blends from the low to the high endpoint by score.
func (p Palette) RelevanceColor(score float64) colorful.Color {
	low := parseHex(p.RelevanceLow)
	high := parseHex(p.RelevanceHigh)
	return low.BlendRgb(high, clamp01(score)).Clamped()
}

func (p Palette) tier(t graph.Tier, active bool) string {
	switch t {
	case graph.Hub:
		if active {
			return p.HubActive
		}
		return p.Hub
	case graph.Category:
		if active {
			return p.CategoryActive
		}
		return p.Category
	default:
		if active {
			return p.LeafActive
		}
		return p.Leaf
	}
}

// NodeColor resolves the fill: relevance blend for search matches, the
// active tier color for other highlights, dimmed for everything outside an
// active highlight, and the tier color otherwise.
func NodeColor(n *graph.Node, s highlight.State, p Palette) string {
	hl := s.Highlighted(n.ID)
	switch {
	case len(s.Relevance) > 0 && hl:
		score, _ := s.Score(n.ID)
		return p.RelevanceColor(score).Hex()
	case hl:
		return p.tier(n.Tier, true)
	case s.Active():
		return p.Dimmed
	default:
		return p.tier(n.Tier, false)
	}
}

// LabelOpacity is 1 for highlighted nodes and hubs; other labels follow
// their tier's fade window. A hovered node only counts while it is not
// dimmed by a lock or search.
func LabelOpacity(n *graph.Node, s highlight.State, zoom float64, o Options) float64 {
	if s.Highlighted(n.ID) || (s.Hovered == n.ID && !s.Dimmed(n.ID)) {
		return 1
	}
	switch n.Tier {
	case graph.Hub:
		return 1
	case graph.Category:
		return o.CategoryLabels.Opacity(zoom)
	default:
		return o.LeafLabels.Opacity(zoom)
	}
}

// NodeRadius scales with the square root of value; negative values draw as
// zero.
func NodeRadius(value, scale float64) float64 {
	if math.IsNaN(value) || value < 0 {
		value = 0
	}
	return math.Sqrt(value) * scale
}

// LinkStyle is how a link is stroked.
type LinkStyle struct {
	Color     string
	Width     float64
	Active    bool
	Particles int
}

// StyleLink returns full strength only when both endpoints are highlighted.
// Flow particles are drawn on active links touching the hovered node.
func StyleLink(l *graph.Link, s highlight.State, o Options) LinkStyle {
	if !s.LinkActive(l) {
		return LinkStyle{Color: o.Palette.Link, Width: o.LinkWidth}
	}
	st := LinkStyle{Color: o.Palette.LinkActive, Width: o.LinkActiveWidth, Active: true}
	if s.Hovered != "" && l.Touches(s.Hovered) {
		st.Particles = o.Particles
	}
	return st
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
