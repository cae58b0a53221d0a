// Package camera drives the explorer viewport: animated zoom, fit-to-content
// and cluster framing, all scheduled as frame callbacks so that a newer
// request always cancels an older one.
package camera

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
)

// State is the viewport transform. The world point (CenterX, CenterY) is
// drawn at the middle of the viewport, magnified by Zoom.
type State struct {
	Zoom    float64 `json:"zoom"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
}

// Framing is the phase of a Reset.
type Framing int

const (
	// Idle means no reset is in progress.
	Idle Framing = iota
	// FittingBounds animates toward the content bounding box.
	FittingBounds
	// AdjustingZoom applies the breathing-room zoom-out after the fit.
	AdjustingZoom
)

func (f Framing) String() string {
	switch f {
	case FittingBounds:
		return "fitting"
	case AdjustingZoom:
		return "adjusting"
	default:
		return "idle"
	}
}

// Content supplies positions for framing. *graph.Graph satisfies it.
type Content interface {
	IDs() []string
	Bounds(ids []string) (minX, minY, maxX, maxY float64, ok bool)
}

// Options configures a Controller.
type Options struct {
	Width, Height float64

	ZoomFactor   float64
	ZoomDuration time.Duration

	FitDuration  time.Duration
	FitPadding   float64
	ResetZoomOut float64
	AdjustDelay  time.Duration
	AdjustDur    time.Duration

	FocusDuration time.Duration
	InspectZoom   float64

	MinZoom float64
	MaxZoom float64

	Logger *zap.Logger
}

func (o *Options) withDefaults() Options {
	d := Options{
		Width:         960,
		Height:        640,
		ZoomFactor:    1.2,
		ZoomDuration:  250 * time.Millisecond,
		FitDuration:   400 * time.Millisecond,
		FitPadding:    40,
		ResetZoomOut:  0.6,
		AdjustDelay:   50 * time.Millisecond,
		AdjustDur:     300 * time.Millisecond,
		FocusDuration: 600 * time.Millisecond,
		InspectZoom:   2.5,
		MinZoom:       0.2,
		MaxZoom:       5,
	}
	if o == nil {
		d.Logger = zap.NewNop()
		return d
	}
	if o.Width > 0 {
		d.Width = o.Width
	}
	if o.Height > 0 {
		d.Height = o.Height
	}
	if o.ZoomFactor > 1 {
		d.ZoomFactor = o.ZoomFactor
	}
	if o.ZoomDuration > 0 {
		d.ZoomDuration = o.ZoomDuration
	}
	if o.FitDuration > 0 {
		d.FitDuration = o.FitDuration
	}
	if o.FitPadding > 0 {
		d.FitPadding = o.FitPadding
	}
	if o.ResetZoomOut > 0 {
		d.ResetZoomOut = o.ResetZoomOut
	}
	if o.AdjustDelay > 0 {
		d.AdjustDelay = o.AdjustDelay
	}
	if o.AdjustDur > 0 {
		d.AdjustDur = o.AdjustDur
	}
	if o.FocusDuration > 0 {
		d.FocusDuration = o.FocusDuration
	}
	if o.InspectZoom > 0 {
		d.InspectZoom = o.InspectZoom
	}
	if o.MinZoom > 0 {
		d.MinZoom = o.MinZoom
	}
	if o.MaxZoom > 0 {
		d.MaxZoom = o.MaxZoom
	}
	d.Logger = o.Logger
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Controller owns the camera state. It must only be used from the
// scheduler's goroutine.
type Controller struct {
	sched   *scheduler.Scheduler
	opts    Options
	content Content

	state   State
	framing Framing

	// gen is bumped by every operation; callbacks from older generations
	// are ignored even if they were not cancelled in time.
	gen   uint64
	frame scheduler.FrameID
	timer *scheduler.Timer

	onChange func(State)
}

// New creates a controller at zoom 1 centred on the origin.
func New(sched *scheduler.Scheduler, opts *Options) *Controller {
	return &Controller{
		sched: sched,
		opts:  opts.withDefaults(),
		state: State{Zoom: 1},
	}
}

// SetContent sets the positions used by Reset, FocusCluster and FocusNode.
func (c *Controller) SetContent(content Content) { c.content = content }

// OnChange registers a callback run after every state change.
func (c *Controller) OnChange(fn func(State)) { c.onChange = fn }

// State returns the current transform.
func (c *Controller) State() State { return c.state }

// Framing returns the reset phase.
func (c *Controller) Framing() Framing { return c.framing }

// Animating reports whether an animation or follow-up timer is pending.
func (c *Controller) Animating() bool { return c.frame != 0 || c.timer != nil }

// Viewport returns the viewport size in screen pixels.
func (c *Controller) Viewport() (w, h float64) { return c.opts.Width, c.opts.Height }

// SetViewport resizes the viewport; the centre stays put.
func (c *Controller) SetViewport(w, h float64) {
	if w > 0 {
		c.opts.Width = w
	}
	if h > 0 {
		c.opts.Height = h
	}
	c.emit()
}

// ZoomRange returns the zoom clamp.
func (c *Controller) ZoomRange() (min, max float64) { return c.opts.MinZoom, c.opts.MaxZoom }

// ZoomIn multiplies the zoom by the zoom factor.
func (c *Controller) ZoomIn() {
	c.begin(Idle)
	target := c.state
	target.Zoom = c.clamp(c.state.Zoom * c.opts.ZoomFactor)
	c.animate(target, c.opts.ZoomDuration, nil)
}

// ZoomOut divides the zoom by the zoom factor.
func (c *Controller) ZoomOut() {
	c.begin(Idle)
	target := c.state
	target.Zoom = c.clamp(c.state.Zoom / c.opts.ZoomFactor)
	c.animate(target, c.opts.ZoomDuration, nil)
}

// Reset fits all content, then zooms out by ResetZoomOut once the fit has
// finished. With no positioned content it returns to the origin at zoom 1.
func (c *Controller) Reset() {
	c.begin(FittingBounds)
	var ids []string
	if c.content != nil {
		ids = c.content.IDs()
	}
	fit, ok := c.fit(ids)
	if !ok {
		c.animate(State{Zoom: 1}, c.opts.FitDuration, func() { c.framing = Idle })
		return
	}
	gen := c.gen
	c.animate(fit, c.opts.FitDuration, func() {
		c.framing = AdjustingZoom
		c.timer = c.sched.After(c.opts.AdjustDelay, func() {
			if gen != c.gen {
				return
			}
			c.timer = nil
			target := c.state
			target.Zoom = c.clamp(fit.Zoom * c.opts.ResetZoomOut)
			c.animate(target, c.opts.AdjustDur, func() { c.framing = Idle })
		})
	})
	c.opts.Logger.Debug("camera reset", zap.Float64("zoom", fit.Zoom))
}

// FocusCluster frames the bounding box of ids. Unknown or unpositioned
// ids are ignored; if none remain it does nothing.
func (c *Controller) FocusCluster(ids []string) bool {
	target, ok := c.fit(ids)
	if !ok {
		return false
	}
	c.begin(Idle)
	c.animate(target, c.opts.FocusDuration, nil)
	return true
}

// FocusNode centres on a single node at the inspect zoom.
func (c *Controller) FocusNode(id string) bool {
	if c.content == nil {
		return false
	}
	x, y, _, _, ok := c.content.Bounds([]string{id})
	if !ok {
		return false
	}
	c.begin(Idle)
	c.animate(State{Zoom: c.clamp(c.opts.InspectZoom), CenterX: x, CenterY: y}, c.opts.FocusDuration, nil)
	return true
}

// Pan moves the view by a screen-space delta and cancels any animation.
func (c *Controller) Pan(dx, dy float64) {
	c.begin(Idle)
	c.state.CenterX -= dx / c.state.Zoom
	c.state.CenterY -= dy / c.state.Zoom
	c.emit()
}

// ZoomAt scales around a screen point, keeping the world point under it
// fixed.
func (c *Controller) ZoomAt(factor, sx, sy float64) {
	if factor <= 0 {
		return
	}
	c.begin(Idle)
	wx, wy := c.ScreenToWorld(sx, sy)
	z := c.clamp(c.state.Zoom * factor)
	c.state.Zoom = z
	c.state.CenterX = wx - (sx-c.opts.Width/2)/z
	c.state.CenterY = wy - (sy-c.opts.Height/2)/z
	c.emit()
}

// Jump sets the state immediately, cancelling any animation.
func (c *Controller) Jump(s State) {
	c.begin(Idle)
	s.Zoom = c.clamp(s.Zoom)
	c.state = s
	c.emit()
}

// Cancel stops any pending animation and leaves the state where it is.
func (c *Controller) Cancel() { c.begin(Idle) }

// ScreenToWorld converts viewport pixels to world coordinates.
func (c *Controller) ScreenToWorld(sx, sy float64) (float64, float64) {
	return c.state.ScreenToWorld(sx, sy, c.opts.Width, c.opts.Height)
}

// WorldToScreen converts world coordinates to viewport pixels.
func (c *Controller) WorldToScreen(wx, wy float64) (float64, float64) {
	return c.state.WorldToScreen(wx, wy, c.opts.Width, c.opts.Height)
}

// ScreenToWorld converts viewport pixels for a w×h viewport.
func (s State) ScreenToWorld(sx, sy, w, h float64) (float64, float64) {
	return (sx-w/2)/s.Zoom + s.CenterX, (sy-h/2)/s.Zoom + s.CenterY
}

// WorldToScreen converts world coordinates for a w×h viewport.
func (s State) WorldToScreen(wx, wy, w, h float64) (float64, float64) {
	return (wx-s.CenterX)*s.Zoom + w/2, (wy-s.CenterY)*s.Zoom + h/2
}

// fit returns the state that frames ids with padding.
func (c *Controller) fit(ids []string) (State, bool) {
	if c.content == nil || len(ids) == 0 {
		return State{}, false
	}
	minX, minY, maxX, maxY, ok := c.content.Bounds(ids)
	if !ok {
		return State{}, false
	}
	bw := math.Max(maxX-minX, 1)
	bh := math.Max(maxY-minY, 1)
	aw := math.Max(c.opts.Width-2*c.opts.FitPadding, 1)
	ah := math.Max(c.opts.Height-2*c.opts.FitPadding, 1)
	return State{
		Zoom:    c.clamp(math.Min(aw/bw, ah/bh)),
		CenterX: (minX + maxX) / 2,
		CenterY: (minY + maxY) / 2,
	}, true
}

func (c *Controller) clamp(z float64) float64 {
	return math.Max(c.opts.MinZoom, math.Min(c.opts.MaxZoom, z))
}

// begin cancels everything pending and enters framing.
func (c *Controller) begin(framing Framing) {
	c.gen++
	if c.frame != 0 {
		c.sched.CancelFrame(c.frame)
		c.frame = 0
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.framing = framing
}

func (c *Controller) animate(target State, d time.Duration, done func()) {
	gen := c.gen
	from := c.state
	start := c.sched.Now()

	var step scheduler.FrameFunc
	step = func(now time.Time) {
		if gen != c.gen {
			return
		}
		c.frame = 0
		t := 1.0
		if d > 0 {
			t = math.Min(1, float64(now.Sub(start))/float64(d))
		}
		c.state = lerp(from, target, easeInOutCubic(t))
		c.emit()
		if t < 1 {
			c.frame = c.sched.RequestFrame(step)
			return
		}
		if done != nil {
			done()
		}
	}
	c.frame = c.sched.RequestFrame(step)
}

func (c *Controller) emit() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}

func lerp(a, b State, t float64) State {
	if t >= 1 {
		return b
	}
	return State{
		Zoom:    a.Zoom + (b.Zoom-a.Zoom)*t,
		CenterX: a.CenterX + (b.CenterX-a.CenterX)*t,
		CenterY: a.CenterY + (b.CenterY-a.CenterY)*t,
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}
