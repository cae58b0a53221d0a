package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// WriteSVG draws f projected through its camera.
func WriteSVG(w io.Writer, f Frame) error {
	width, height := int(math.Round(f.Width)), int(math.Round(f.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: invalid viewport %dx%d", width, height)
	}
	zoom := f.Camera.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	project := func(x, y float64) (int, int) {
		sx, sy := f.Camera.WorldToScreen(x, y, f.Width, f.Height)
		return int(math.Round(sx)), int(math.Round(sy))
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+f.Background)

	canvas.Gid("links")
	for _, l := range f.Links {
		x1, y1 := project(l.X1, l.Y1)
		x2, y2 := project(l.X2, l.Y2)
		canvas.Line(x1, y1, x2, y2,
			fmt.Sprintf("stroke:%s;stroke-width:%.2f;stroke-linecap:round", l.Color, l.Width))
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range f.Nodes {
		x, y := project(n.X, n.Y)
		r := int(math.Max(1, math.Round(n.Radius*zoom)))
		canvas.Circle(x, y, r, "fill:"+n.Color)
	}
	canvas.Gend()

	canvas.Gid("labels")
	for _, n := range f.Nodes {
		if n.LabelOpacity <= 0 || n.Title == "" {
			continue
		}
		x, y := project(n.X, n.Y)
		r := int(math.Round(n.Radius * zoom))
		canvas.Text(x, y-r-4, n.Title,
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:11px;font-family:system-ui,sans-serif;text-anchor:middle",
				f.LabelColor, n.LabelOpacity))
	}
	canvas.Gend()

	if f.Message != "" {
		canvas.Text(width/2, height-24, f.Message,
			fmt.Sprintf("fill:%s;font-size:14px;font-family:system-ui,sans-serif;text-anchor:middle", f.LabelColor))
	}
	canvas.End()
	return nil
}
