package explorer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/highlight"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/search"
)

// ZoomIn zooms in one step.
func (e *Explorer) ZoomIn() { e.sched.Post(e.cam.ZoomIn) }

// ZoomOut zooms out one step.
func (e *Explorer) ZoomOut() { e.sched.Post(e.cam.ZoomOut) }

// Reset fits the whole graph, then backs off.
func (e *Explorer) Reset() { e.sched.Post(e.cam.Reset) }

// Pan moves the view by a screen-space delta.
func (e *Explorer) Pan(dx, dy float64) {
	e.sched.Post(func() { e.cam.Pan(dx, dy) })
}

// Wheel zooms by factor around the screen point (sx, sy).
func (e *Explorer) Wheel(factor, sx, sy float64) {
	e.sched.Post(func() { e.cam.ZoomAt(factor, sx, sy) })
}

// SetViewport resizes the drawing surface.
func (e *Explorer) SetViewport(w, h float64) {
	e.sched.Post(func() {
		e.cam.SetViewport(w, h)
		e.invalidate()
	})
}

// SetDataset replaces the dataset and rebuilds the graph.
func (e *Explorer) SetDataset(p graph.Payload) {
	e.sched.Post(func() {
		e.payload = p
		e.dataErr = false
		e.message = ""
		e.rebuild()
	})
}

// SetIncludeSynthetic toggles the demo dataset. Setting the current value
// does nothing.
func (e *Explorer) SetIncludeSynthetic(on bool) {
	e.sched.Post(func() {
		if e.includeSynthetic == on {
			return
		}
		e.includeSynthetic = on
		e.rebuild()
	})
}

// NodeHover previews the neighborhood of id.
func (e *Explorer) NodeHover(id string) {
	e.sched.Post(func() { e.hover(id) })
}

// NodeUnhover ends a hover preview.
func (e *Explorer) NodeUnhover() {
	e.sched.Post(e.unhover)
}

// NodeClick handles a click on id.
func (e *Explorer) NodeClick(id string) {
	e.sched.Post(func() { e.click(id) })
}

// BackgroundClick handles a click on empty canvas.
func (e *Explorer) BackgroundClick() {
	e.sched.Post(e.backgroundClick)
}

// PointerMove hit-tests the screen point and updates the hover.
func (e *Explorer) PointerMove(sx, sy float64) {
	e.sched.Post(func() {
		hit, ok := e.Frame().PickScreen(sx, sy)
		switch {
		case ok && hit.ID != e.hovered:
			e.hover(hit.ID)
		case !ok && e.hovered != "":
			e.unhover()
		}
	})
}

// PointerClick hit-tests the screen point and dispatches a node or
// background click.
func (e *Explorer) PointerClick(sx, sy float64) {
	e.sched.Post(func() {
		if hit, ok := e.Frame().PickScreen(sx, sy); ok {
			e.click(hit.ID)
			return
		}
		e.backgroundClick()
	})
}

func (e *Explorer) hover(id string) {
	e.hovered = id
	if e.hl.Hover(id) {
		e.publishHighlight()
	}
}

func (e *Explorer) unhover() {
	e.hovered = ""
	if e.hl.Unhover() {
		e.publishHighlight()
	}
}

func (e *Explorer) click(id string) {
	act := e.hl.Click(id)
	switch act.Kind {
	case highlight.ActionNavigate:
		e.logger.Debug("navigate", zap.String("node", id), zap.String("route", act.Route))
		e.mu.RLock()
		fn := e.onNavigate
		e.mu.RUnlock()
		if fn != nil {
			fn(act.Route)
		}
	case highlight.ActionLock:
		e.cam.FocusCluster(act.Focus)
		e.publishHighlight()
	}
}

func (e *Explorer) backgroundClick() {
	if e.hl.BackgroundClick() {
		e.publishHighlight()
		e.cam.Reset()
	}
}

// Search issues a query. An empty query clears the search. A newer Search
// or ClearSearch supersedes this one; its late response is dropped.
func (e *Explorer) Search(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.ClearSearch()
		return
	}
	e.sched.Post(func() {
		tk := e.tracker.Begin(text)
		e.message = ""
		e.hovered = ""
		e.hl.BeginSearch(text)
		e.publishHighlight()
		go e.runSearch(ctx, tk)
	})
}

// ClearSearch ends the active search, if any.
func (e *Explorer) ClearSearch() {
	e.sched.Post(func() {
		e.tracker.Cancel()
		if e.hl.Mode() == highlight.SearchActive || e.hl.State().NoResults {
			e.hl.Clear()
			e.publishHighlight()
		}
		if !e.dataErr {
			e.message = ""
		}
		e.invalidate()
	})
}

func (e *Explorer) runSearch(ctx context.Context, tk search.Ticket) {
	if e.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.searchTimeout)
		defer cancel()
	}
	res, err := e.svc.Search(ctx, search.Query{Text: tk.Query, TeamID: e.teamID})
	if err != nil && !orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeSearch) {
		err = orbiterrors.NewSearchError(tk.Query, 0, err)
	}
	e.sched.Post(func() { e.finishSearch(tk, res, err) })
}

func (e *Explorer) finishSearch(tk search.Ticket, res search.Result, err error) {
	if !e.tracker.Done(tk) {
		e.logger.Debug("dropping stale search response", zap.String("query", tk.Query), zap.Uint64("seq", tk.Seq))
		return
	}
	if err != nil {
		e.logger.Warn("search failed", zap.String("query", tk.Query), zap.Error(err))
		e.hl.RestoreSearch()
		e.message = orbiterrors.UserMessage(err)
		e.publishHighlight()
		return
	}
	if e.hl.ApplySearchResults(res.Articles, res.Categories, res.Overlaps) {
		e.cam.FocusCluster(e.hl.State().Nodes.Slice())
	}
	e.publishHighlight()
}
