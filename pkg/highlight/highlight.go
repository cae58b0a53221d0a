// Package highlight decides which nodes are emphasised: hover previews,
// click locks and search relevance, with search taking precedence.
package highlight

import (
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/search"
)

// Mode is the authoritative highlight source.
type Mode int

const (
	Idle Mode = iota
	HoverPreview
	Locked
	SearchActive
)

func (m Mode) String() string {
	switch m {
	case HoverPreview:
		return "hover"
	case Locked:
		return "locked"
	case SearchActive:
		return "search"
	default:
		return "idle"
	}
}

// ActionKind says what the host should do after a click.
type ActionKind int

const (
	ActionNone ActionKind = iota
	// ActionNavigate asks the host to open Route.
	ActionNavigate
	// ActionLock asks the host to frame Focus.
	ActionLock
)

// Action is the outcome of Click.
type Action struct {
	Kind   ActionKind
	NodeID string
	Route  string
	Focus  []string
}

// ArticleRoute returns the host route for an article.
func ArticleRoute(articleID string) string {
	return "/articles/" + url.PathEscape(articleID)
}

// Engine is the highlight state machine. It is not safe for concurrent use.
type Engine struct {
	g      *graph.Graph
	logger *zap.Logger

	mode      Mode
	hovered   string
	locked    string
	nodes     graph.IDSet
	links     map[*graph.Link]struct{}
	relevance map[string]float64
	query     string
	noResults bool

	// saved is the highlight in place before the search in flight
	saved *snapshot
}

type snapshot struct {
	mode      Mode
	locked    string
	nodes     graph.IDSet
	links     map[*graph.Link]struct{}
	relevance map[string]float64
	query     string
	noResults bool
}

// New creates an idle engine over g.
func New(g *graph.Graph, logger *zap.Logger) *Engine {
	if g == nil {
		g = graph.Empty()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{g: g, logger: logger}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.mode = Idle
	e.locked = ""
	e.nodes = graph.NewIDSet()
	e.links = make(map[*graph.Link]struct{})
	e.relevance = make(map[string]float64)
	e.query = ""
}

// SetGraph swaps the graph. Node ids from the old graph are meaningless
// afterwards, so every highlight is dropped.
func (e *Engine) SetGraph(g *graph.Graph) {
	if g == nil {
		g = graph.Empty()
	}
	e.g = g
	e.hovered = ""
	e.noResults = false
	e.saved = nil
	e.reset()
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode { return e.mode }

// Hover previews the neighborhood of id unless a lock or search owns the
// highlight. It reports whether the highlight changed.
func (e *Engine) Hover(id string) bool {
	if _, ok := e.g.Node(id); !ok {
		return false
	}
	prev := e.hovered
	e.hovered = id
	if e.mode != Idle && e.mode != HoverPreview {
		return prev != id
	}
	e.mode = HoverPreview
	e.setNeighborhood(id)
	return true
}

// Unhover ends a hover preview.
func (e *Engine) Unhover() bool {
	if e.hovered == "" {
		return false
	}
	e.hovered = ""
	if e.mode == HoverPreview {
		e.reset()
	}
	return true
}

// Click handles a node click. Leaves navigate; hubs and categories lock
// their neighborhood unless a search is active.
func (e *Engine) Click(id string) Action {
	n, ok := e.g.Node(id)
	if !ok {
		return Action{}
	}
	switch n.Tier {
	case graph.Leaf:
		article := n.ArticleID
		if article == "" {
			article = n.ID
		}
		return Action{Kind: ActionNavigate, NodeID: id, Route: ArticleRoute(article)}
	default:
		if e.mode == SearchActive {
			return Action{NodeID: id}
		}
		e.mode = Locked
		e.locked = id
		e.setNeighborhood(id)
		e.logger.Debug("highlight locked", zap.String("node", id), zap.Int("size", len(e.nodes)))
		return Action{Kind: ActionLock, NodeID: id, Focus: e.nodes.Slice()}
	}
}

// BackgroundClick clears a lock. It reports whether a lock was cleared.
func (e *Engine) BackgroundClick() bool {
	if e.mode != Locked {
		return false
	}
	e.reset()
	e.logger.Debug("highlight lock cleared")
	return true
}

// BeginSearch enters SearchActive for query. The current highlight is kept
// aside until the results arrive so that RestoreSearch can bring it back.
// A search issued while another is still in flight keeps the older
// snapshot.
func (e *Engine) BeginSearch(query string) {
	if e.saved == nil {
		e.saved = &snapshot{
			mode:      e.mode,
			locked:    e.locked,
			nodes:     e.nodes,
			links:     e.links,
			relevance: e.relevance,
			query:     e.query,
			noResults: e.noResults,
		}
	}
	e.reset()
	e.mode = SearchActive
	e.query = query
	e.noResults = false
}

// ApplySearchResults highlights exactly the matched nodes. Scores from
// article and category matches are merged by maximum and overlap pairs pull
// in both categories. With no match at all the state is cleared, NoResults
// is raised and false is returned.
func (e *Engine) ApplySearchResults(articles []search.Article, categories []search.Category, overlaps []search.Overlap) bool {
	e.saved = nil
	query := e.query
	e.reset()
	e.query = query

	byArticle := make(map[string]string)
	byName := make(map[string]string)
	for _, n := range e.g.Nodes() {
		switch n.Tier {
		case graph.Leaf:
			if n.ArticleID != "" {
				byArticle[n.ArticleID] = n.ID
			}
		case graph.Category, graph.Hub:
			byName[strings.ToLower(n.Title)] = n.ID
		}
	}
	resolveArticle := func(id string) (string, bool) {
		if nid, ok := byArticle[id]; ok {
			return nid, true
		}
		if n, ok := e.g.Node(id); ok && n.Tier == graph.Leaf {
			return n.ID, true
		}
		return "", false
	}
	resolveCategory := func(name string) (string, bool) {
		if nid, ok := byName[strings.ToLower(name)]; ok {
			return nid, true
		}
		if n, ok := e.g.Node(name); ok && n.Tier != graph.Leaf {
			return n.ID, true
		}
		return "", false
	}
	score := func(id string, s float64) {
		s = clamp01(s)
		if cur, ok := e.relevance[id]; !ok || s > cur {
			e.relevance[id] = s
		}
		e.nodes.Add(id)
	}

	for _, c := range categories {
		if id, ok := resolveCategory(c.Name); ok {
			score(id, c.Similarity)
		}
	}
	for _, a := range articles {
		if id, ok := resolveArticle(a.ID); ok {
			score(id, a.Similarity)
		}
	}
	for _, o := range overlaps {
		for _, name := range []string{o.Category1, o.Category2} {
			if id, ok := resolveCategory(name); ok {
				score(id, o.Similarity)
			}
		}
	}

	if len(e.nodes) == 0 {
		e.reset()
		e.noResults = true
		e.logger.Debug("search matched nothing", zap.String("query", query))
		return false
	}
	e.mode = SearchActive
	for _, l := range e.g.Links() {
		if e.nodes.Has(l.SourceID()) && e.nodes.Has(l.TargetID()) {
			e.links[l] = struct{}{}
		}
	}
	e.noResults = false
	return true
}

// Clear drops every highlight and the no-results flag.
func (e *Engine) Clear() {
	e.reset()
	e.noResults = false
	e.saved = nil
}

// RestoreSearch abandons the search in flight and puts back the highlight
// that was active when it began. Without a pending search it clears.
func (e *Engine) RestoreSearch() {
	prev := e.saved
	if prev == nil {
		e.Clear()
		return
	}
	e.saved = nil
	e.mode = prev.mode
	e.locked = prev.locked
	e.nodes = prev.nodes
	e.links = prev.links
	e.relevance = prev.relevance
	e.query = prev.query
	e.noResults = prev.noResults
}

func (e *Engine) setNeighborhood(id string) {
	nb := e.g.NeighborhoodOf(id)
	e.nodes = nb.Nodes
	e.links = nb.Links
	e.relevance = make(map[string]float64)
}

// State returns an immutable snapshot.
func (e *Engine) State() State {
	links := make(map[*graph.Link]struct{}, len(e.links))
	for l := range e.links {
		links[l] = struct{}{}
	}
	rel := make(map[string]float64, len(e.relevance))
	for id, s := range e.relevance {
		rel[id] = s
	}
	return State{
		Mode:      e.mode,
		Hovered:   e.hovered,
		Locked:    e.locked,
		Nodes:     e.nodes.Clone(),
		Links:     links,
		Relevance: rel,
		Query:     e.query,
		NoResults: e.noResults,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
