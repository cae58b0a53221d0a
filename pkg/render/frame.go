package render

import (
	"math"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/highlight"
)

// NodeSprite is one drawable node in world coordinates.
type NodeSprite struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Tier         graph.Tier `json:"tier"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Radius       float64    `json:"r"`
	Color        string     `json:"color"`
	LabelOpacity float64    `json:"labelOpacity"`
	Highlighted  bool       `json:"highlighted,omitempty"`
	Dimmed       bool       `json:"dimmed,omitempty"`
}

// LinkSprite is one drawable link in world coordinates.
type LinkSprite struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Particles int     `json:"particles,omitempty"`
}

// Frame is everything needed to draw one picture.
type Frame struct {
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Camera     camera.State `json:"camera"`
	Background string       `json:"background"`
	LabelColor string       `json:"labelColor"`
	Mode       string       `json:"mode"`
	Message    string       `json:"message,omitempty"`
	Links      []LinkSprite `json:"links"`
	Nodes      []NodeSprite `json:"nodes"`
}

// Pipeline composes frames with fixed options.
type Pipeline struct {
	opts Options
}

// NewPipeline creates a pipeline; nil options use the defaults.
func NewPipeline(opts *Options) *Pipeline {
	return &Pipeline{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Compose builds a frame. Links are emitted before nodes so that nodes
// draw on top.
func (p *Pipeline) Compose(g *graph.Graph, s highlight.State, cam camera.State, width, height float64) Frame {
	f := Frame{
		Width:      width,
		Height:     height,
		Camera:     cam,
		Background: p.opts.Palette.Background,
		LabelColor: p.opts.Palette.Label,
		Mode:       s.Mode.String(),
		Message:    s.Message(),
	}
	if g == nil {
		return f
	}
	links := g.Links()
	f.Links = make([]LinkSprite, 0, len(links))
	for _, l := range links {
		src, dst := l.Source.Node(), l.Target.Node()
		if src == nil || dst == nil {
			continue
		}
		st := StyleLink(l, s, p.opts)
		f.Links = append(f.Links, LinkSprite{
			Source:    src.ID,
			Target:    dst.ID,
			X1:        src.X,
			Y1:        src.Y,
			X2:        dst.X,
			Y2:        dst.Y,
			Color:     st.Color,
			Width:     st.Width,
			Particles: st.Particles,
		})
	}
	nodes := g.Nodes()
	f.Nodes = make([]NodeSprite, 0, len(nodes))
	for _, n := range nodes {
		f.Nodes = append(f.Nodes, NodeSprite{
			ID:           n.ID,
			Title:        n.Title,
			Tier:         n.Tier,
			X:            n.X,
			Y:            n.Y,
			Radius:       NodeRadius(n.Value, p.opts.RadiusScale),
			Color:        NodeColor(n, s, p.opts.Palette),
			LabelOpacity: LabelOpacity(n, s, cam.Zoom, p.opts),
			Highlighted:  s.Highlighted(n.ID),
			Dimmed:       s.Dimmed(n.ID),
		})
	}
	return f
}

// minPickRadius keeps tiny nodes clickable, in screen pixels.
const minPickRadius = 4.0

// Pick returns the node under the world point (wx, wy). When hit areas
// overlap the node whose centre is closest wins.
func (f Frame) Pick(wx, wy float64) (NodeSprite, bool) {
	zoom := f.Camera.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	var best NodeSprite
	bestDist := math.Inf(1)
	found := false
	for _, n := range f.Nodes {
		r := math.Max(n.Radius, minPickRadius/zoom)
		d := math.Hypot(n.X-wx, n.Y-wy)
		if d > r || d >= bestDist {
			continue
		}
		best, bestDist, found = n, d, true
	}
	return best, found
}

// PickScreen hit-tests a viewport pixel.
func (f Frame) PickScreen(sx, sy float64) (NodeSprite, bool) {
	wx, wy := f.Camera.ScreenToWorld(sx, sy, f.Width, f.Height)
	return f.Pick(wx, wy)
}
