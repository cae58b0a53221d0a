package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

type fakeExplorer struct {
	mu     sync.Mutex
	calls  []string
	frame  render.Frame
	status explorer.Status
	w, h   float64
}

func (f *fakeExplorer) record(c string) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeExplorer) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeExplorer) ZoomIn()                            { f.record("zoomIn") }
func (f *fakeExplorer) ZoomOut()                           { f.record("zoomOut") }
func (f *fakeExplorer) Reset()                             { f.record("reset") }
func (f *fakeExplorer) Pan(dx, dy float64)                 { f.record("pan") }
func (f *fakeExplorer) NodeHover(id string)                { f.record("hover:" + id) }
func (f *fakeExplorer) NodeUnhover()                       { f.record("unhover") }
func (f *fakeExplorer) NodeClick(id string)                { f.record("click:" + id) }
func (f *fakeExplorer) BackgroundClick()                   { f.record("background") }
func (f *fakeExplorer) Search(_ context.Context, q string) { f.record("search:" + q) }
func (f *fakeExplorer) ClearSearch()                       { f.record("clearSearch") }
func (f *fakeExplorer) SetViewport(w, h float64)           { f.w, f.h = w, h }
func (f *fakeExplorer) Frame() render.Frame                { return f.frame }
func (f *fakeExplorer) Status() explorer.Status            { return f.status }

func testFrame() render.Frame {
	return render.Frame{
		Width:      160,
		Height:     160,
		Camera:     camera.State{Zoom: 1},
		LabelColor: "#ffffff",
		Nodes: []render.NodeSprite{
			{ID: "leaf-b", Title: "Beta", Tier: graph.Leaf, X: 40, Y: 0, Color: "#22c55e"},
			{ID: "hub", Title: "Hub", Tier: graph.Hub, X: 0, Y: 0, Color: "#3b82f6"},
			{ID: "leaf-a", Title: "Alpha", Tier: graph.Leaf, X: -40, Y: 0, Color: "#22c55e"},
		},
	}
}

func newTestModel(t *testing.T) (Model, *fakeExplorer) {
	t.Helper()
	ex := &fakeExplorer{frame: testFrame(), status: explorer.Status{Mode: "idle", Nodes: 3}}
	m := NewModel(context.Background(), ex)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 23})
	next, _ = next.Update(refreshMsg{})
	return next.(Model), ex
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	var next tea.Model = m
	for _, msg := range msgs {
		next, _ = next.Update(msg)
	}
	return next.(Model)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestWindowSizeSetsViewport(t *testing.T) {
	_, ex := newTestModel(t)
	assert.Equal(t, 40*CellWidth, ex.w)
	assert.Equal(t, 20*CellHeight, ex.h)
}

func TestTabCyclesByTierThenTitle(t *testing.T) {
	m, ex := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "hub", m.Selected())
	assert.Equal(t, "hover:hub", ex.last())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "leaf-a", m.Selected())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "leaf-b", m.Selected())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "click:leaf-b", ex.last())
}

func TestEnterWithoutSelectionClicksBackground(t *testing.T) {
	m, ex := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "background", ex.last())
}

func TestCameraKeys(t *testing.T) {
	m, ex := newTestModel(t)
	tests := []struct {
		msg  tea.KeyMsg
		want string
	}{
		{runes("+"), "zoomIn"},
		{runes("-"), "zoomOut"},
		{runes("r"), "reset"},
		{tea.KeyMsg{Type: tea.KeyLeft}, "pan"},
	}
	for _, tt := range tests {
		m = press(t, m, tt.msg)
		assert.Equal(t, tt.want, ex.last(), tt.msg.String())
	}
}

func TestSearchPrompt(t *testing.T) {
	m, ex := newTestModel(t)

	m = press(t, m, runes("/"))
	require.True(t, m.searching)
	m = press(t, m, runes("i"), runes("n"), runes("f"), runes("r"), runes("a"))
	assert.Contains(t, m.View(), "infra")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, "search:infra", ex.last())
}

func TestEscPeelsLayers(t *testing.T) {
	m, ex := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", m.Selected())
	assert.Equal(t, "unhover", ex.last())

	ex.status.Mode = "search"
	next, _ := m.Update(refreshMsg{})
	m = press(t, next.(Model), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "clearSearch", ex.last())

	ex.status.Mode = "locked"
	next, _ = m.Update(refreshMsg{})
	press(t, next.(Model), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "background", ex.last())
}

func TestSelectionSurvivesRefresh(t *testing.T) {
	m, ex := newTestModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "leaf-a", m.Selected())

	// a new node sorting before the selection shifts its index
	ex.frame.Nodes = append(ex.frame.Nodes, render.NodeSprite{ID: "cat", Title: "Cat", Tier: graph.Category})
	next, _ := m.Update(refreshMsg{})
	assert.Equal(t, "leaf-a", next.(Model).Selected())
}

func TestViewShowsStatus(t *testing.T) {
	m, ex := newTestModel(t)
	ex.status.Message = "No matching articles or categories"
	next, _ := m.Update(refreshMsg{})
	view := next.(Model).View()
	assert.Contains(t, view, "No matching articles or categories")
	assert.Contains(t, view, "3 nodes")

	next, _ = next.Update(NavigateMsg{Route: "/articles/a1"})
	ex.status.Message = ""
	next, _ = next.Update(refreshMsg{})
	assert.Contains(t, next.(Model).View(), "/articles/a1")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Empty(t, next.(Model).View())
}
