package highlight

import "github.com/noah-vl/orbit-frontend-sub000/pkg/graph"

// NoResultsMessage is shown when a search matched nothing.
const NoResultsMessage = "No matching articles or categories"

// State is a read-only snapshot of the highlight engine.
type State struct {
	Mode      Mode
	Hovered   string
	Locked    string
	Nodes     graph.IDSet
	Links     map[*graph.Link]struct{}
	Relevance map[string]float64
	Query     string
	NoResults bool
}

// Active reports whether any node is highlighted.
func (s State) Active() bool { return len(s.Nodes) > 0 }

// Highlighted reports whether id is in the highlight set.
func (s State) Highlighted(id string) bool { return s.Nodes.Has(id) }

// Dimmed reports whether id should fade behind an active highlight.
func (s State) Dimmed(id string) bool { return s.Active() && !s.Nodes.Has(id) }

// Score returns the relevance of id, if any.
func (s State) Score(id string) (float64, bool) {
	v, ok := s.Relevance[id]
	return v, ok
}

// LinkActive reports whether both endpoints of l are highlighted.
func (s State) LinkActive(l *graph.Link) bool {
	return s.Nodes.Has(l.SourceID()) && s.Nodes.Has(l.TargetID())
}

// Message is the user-facing status line, if any.
func (s State) Message() string {
	if s.NoResults {
		return NoResultsMessage
	}
	return ""
}
