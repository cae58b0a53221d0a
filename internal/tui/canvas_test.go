package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

func TestCanvasDrawsNodesAndLinks(t *testing.T) {
	// 20x10 cells -> 160x160 px, world origin at cell (10, 5)
	f := render.Frame{
		Width:  20 * CellWidth,
		Height: 10 * CellHeight,
		Camera: camera.State{Zoom: 1},
		Nodes: []render.NodeSprite{
			{ID: "hub", Tier: graph.Hub, X: 0, Y: 0},
			{ID: "leaf", Tier: graph.Leaf, X: 8 * CellWidth, Y: 0},
		},
		Links: []render.LinkSprite{{Source: "hub", Target: "leaf", X1: 0, Y1: 0, X2: 8 * CellWidth, Y2: 0}},
	}

	c := NewCanvas(20, 10)
	c.Draw(f, "")

	assert.Equal(t, '◉', c.At(10, 5))
	assert.Equal(t, '•', c.At(18, 5))
	for col := 11; col < 18; col++ {
		assert.Equal(t, '·', c.At(col, 5), "col %d", col)
	}
	assert.Equal(t, ' ', c.At(0, 0))
}

func TestCanvasSelectionAndLabels(t *testing.T) {
	f := render.Frame{
		Width:  20 * CellWidth,
		Height: 10 * CellHeight,
		Camera: camera.State{Zoom: 1},
		Nodes: []render.NodeSprite{
			{ID: "cat", Title: "Ops", Tier: graph.Category, X: 0, Y: 0},
		},
	}

	c := NewCanvas(20, 10)
	c.Draw(f, "cat")
	lines := strings.Split(c.Plain(), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "[●]Ops", strings.TrimSpace(lines[5])[:len("[●]Ops")])
}

func TestCanvasClipsOffscreenLinks(t *testing.T) {
	f := render.Frame{
		Width:  10 * CellWidth,
		Height: 10 * CellHeight,
		Camera: camera.State{Zoom: 1},
		Links: []render.LinkSprite{
			// far outside, never crosses the grid
			{X1: 1e6, Y1: 1e6, X2: 2e6, Y2: 1e6},
			// crosses the middle row from far left to far right
			{X1: -1e6, Y1: 0, X2: 1e6, Y2: 0},
		},
	}

	c := NewCanvas(10, 10)
	c.Draw(f, "")
	for col := 0; col < 10; col++ {
		assert.Equal(t, '·', c.At(col, 5), "col %d", col)
	}
	assert.Equal(t, ' ', c.At(0, 0))
}

func TestCanvasEmpty(t *testing.T) {
	c := NewCanvas(0, 0)
	c.Draw(render.Frame{}, "x")
	assert.Equal(t, "", c.Plain())
	assert.Equal(t, "", c.String())
}
