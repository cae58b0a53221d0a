package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

// Terminal cells are roughly twice as tall as they are wide. The explorer
// works in pixels, so every cell stands for a CellWidth x CellHeight block.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

type cell struct {
	ch    rune
	color string
	bold  bool
}

// Canvas is a character grid a frame is rasterized onto.
type Canvas struct {
	cols, rows int
	cells      []cell
}

// NewCanvas returns a blank cols x rows canvas.
func NewCanvas(cols, rows int) *Canvas {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	c := &Canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range c.cells {
		c.cells[i].ch = ' '
	}
	return c
}

func (c *Canvas) set(col, row int, ch rune, color string, bold bool) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = cell{ch: ch, color: color, bold: bold}
}

// At returns the rune at (col, row), or a space outside the grid.
func (c *Canvas) At(col, row int) rune {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return ' '
	}
	return c.cells[row*c.cols+col].ch
}

// project maps a world point to a cell.
func project(f render.Frame, x, y float64) (int, int) {
	cx, cy := projectF(f, x, y)
	return int(math.Floor(cx)), int(math.Floor(cy))
}

func projectF(f render.Frame, x, y float64) (float64, float64) {
	sx, sy := f.Camera.WorldToScreen(x, y, f.Width, f.Height)
	return sx / CellWidth, sy / CellHeight
}

// Draw rasterizes f. Links go first so nodes and labels overwrite them;
// selected, when non-empty, is drawn in brackets.
func (c *Canvas) Draw(f render.Frame, selected string) {
	for _, l := range f.Links {
		x1, y1 := projectF(f, l.X1, l.Y1)
		x2, y2 := projectF(f, l.X2, l.Y2)
		x1, y1, x2, y2, ok := clip(x1, y1, x2, y2, float64(c.cols), float64(c.rows))
		if !ok {
			continue
		}
		ch := '·'
		if l.Particles > 0 {
			ch = '•'
		}
		c.line(int(math.Floor(x1)), int(math.Floor(y1)), int(math.Floor(x2)), int(math.Floor(y2)), ch, l.Color)
	}

	for _, n := range f.Nodes {
		col, row := project(f, n.X, n.Y)
		c.set(col, row, glyph(n), n.Color, n.Highlighted)
	}

	for _, n := range f.Nodes {
		if n.LabelOpacity < 0.5 || n.Title == "" {
			continue
		}
		col, row := project(f, n.X, n.Y)
		c.text(col+2, row, n.Title, f.LabelColor, false)
	}

	if selected == "" {
		return
	}
	for _, n := range f.Nodes {
		if n.ID != selected {
			continue
		}
		col, row := project(f, n.X, n.Y)
		c.set(col-1, row, '[', f.LabelColor, true)
		c.set(col+1, row, ']', f.LabelColor, true)
		if n.LabelOpacity < 0.5 {
			c.text(col+2, row, n.Title, f.LabelColor, true)
		}
	}
}

func glyph(n render.NodeSprite) rune {
	switch n.Tier {
	case graph.Hub:
		return '◉'
	case graph.Category:
		return '●'
	default:
		if n.Dimmed {
			return '∙'
		}
		return '•'
	}
}

func (c *Canvas) text(col, row int, s, color string, bold bool) {
	for _, r := range s {
		c.set(col, row, r, color, bold)
		col++
	}
}

// line draws with Bresenham, skipping the end points where the nodes sit.
func (c *Canvas) line(x0, y0, x1, y1 int, ch rune, color string) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for steps := 0; steps <= dx-dy; steps++ {
		if (x != x0 || y != y0) && (x != x1 || y != y1) {
			c.set(x, y, ch, color, false)
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// clip trims a segment to the grid plus a one-cell margin (Liang-Barsky).
func clip(x0, y0, x1, y1, w, h float64) (float64, float64, float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float64{
		{-dx, x0 + 1},
		{dx, w + 1 - x0},
		{-dy, y0 + 1},
		{dy, h + 1 - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Plain returns the grid without styling, one line per row.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			b.WriteRune(c.cells[row*c.cols+col].ch)
		}
		if row < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// String renders the grid with lipgloss colors. Runs of cells sharing a
// style are rendered together.
func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		var run strings.Builder
		cur := cell{color: "\x00"}
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().Bold(cur.bold)
			if cur.color != "" {
				style = style.Foreground(lipgloss.Color(cur.color))
			}
			b.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for col := 0; col < c.cols; col++ {
			cl := c.cells[row*c.cols+col]
			if cl.ch == ' ' {
				cl.color, cl.bold = "", false
			}
			if cl.color != cur.color || cl.bold != cur.bold {
				flush()
				cur = cl
			}
			run.WriteRune(cl.ch)
		}
		flush()
		if row < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
