// Package explorer wires the graph model, layout, camera, highlight engine
// and render pipeline into one interactive handle. All state is owned by
// the scheduler loop; public methods post work onto it and are safe to call
// from any goroutine.
package explorer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/highlight"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/layout"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/reactive"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/search"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/source"
)

// DefaultAutoFitDelay is how long after a rebuild the camera refits. The
// layout is usually mostly settled by then; it is not awaited.
const DefaultAutoFitDelay = 1200 * time.Millisecond

// LayoutStore keeps settled positions between runs. *cache.Cache from the
// orbit binary satisfies it.
type LayoutStore interface {
	Lookup(g *graph.Graph, p layout.Params) (map[string][2]float64, bool)
	Store(g *graph.Graph, p layout.Params, pos map[string][2]float64) error
}

// Options configures an Explorer.
type Options struct {
	// Scheduler drives the explorer. A new one is created when nil; the
	// caller must then Run it.
	Scheduler *scheduler.Scheduler
	// Search answers queries. When nil an in-process keyword index over
	// the current dataset is used.
	Search search.Service
	TeamID string

	Layout           layout.Params
	Rings            graph.Rings
	Camera           *camera.Options
	Render           *render.Options
	IncludeSynthetic bool
	AutoFitDelay     time.Duration
	SearchTimeout    time.Duration
	// Layouts, when set, seeds each rebuild from a stored layout and saves
	// the positions once the simulation cools.
	Layouts LayoutStore

	Rand   *rand.Rand
	Logger *zap.Logger
}

// Explorer is the composition root.
type Explorer struct {
	sched   *scheduler.Scheduler
	sim     *layout.Simulation
	cam     *camera.Controller
	hl      *highlight.Engine
	pipe    *render.Pipeline
	svc     search.Service
	index   *search.Index
	layouts LayoutStore
	logger  *zap.Logger

	teamID        string
	rings         graph.Rings
	rng           *rand.Rand
	autoFitDelay  time.Duration
	searchTimeout time.Duration

	// Loop-owned state.
	payload          graph.Payload
	includeSynthetic bool
	report           graph.Report
	dataErr          bool
	message          string
	hovered          string
	tracker          search.Tracker
	simFrame         scheduler.FrameID
	fitTimer         *scheduler.Timer

	graphCell     *reactive.State[*graph.Graph]
	highlightCell *reactive.State[highlight.State]
	cameraCell    *reactive.State[camera.State]
	task          *scheduler.Task

	// Published for readers on other goroutines.
	mu         sync.RWMutex
	frame      render.Frame
	status     Status
	onNavigate func(route string)
	onFrame    func(render.Frame)
	onStatus   func(Status)
}

// New builds an explorer with an empty graph. Nothing runs until the
// scheduler does.
func New(opts Options) *Explorer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler.New(scheduler.Options{Start: time.Now(), Logger: logger})
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	camOpts := camera.Options{}
	if opts.Camera != nil {
		camOpts = *opts.Camera
	}
	if camOpts.Logger == nil {
		camOpts.Logger = logger.Named("camera")
	}

	e := &Explorer{
		sched:            sched,
		sim:              layout.New(layout.Options{Params: opts.Layout, Rand: rng, Logger: logger.Named("layout")}),
		cam:              camera.New(sched, &camOpts),
		pipe:             render.NewPipeline(opts.Render),
		svc:              opts.Search,
		layouts:          opts.Layouts,
		logger:           logger,
		teamID:           opts.TeamID,
		rings:            opts.Rings,
		rng:              rng,
		autoFitDelay:     opts.AutoFitDelay,
		searchTimeout:    opts.SearchTimeout,
		includeSynthetic: opts.IncludeSynthetic,
	}
	if e.autoFitDelay <= 0 {
		e.autoFitDelay = DefaultAutoFitDelay
	}
	if e.svc == nil {
		e.index = search.NewIndex(graph.Payload{})
		e.svc = e.index
	}

	empty := graph.Empty()
	e.hl = highlight.New(empty, logger.Named("highlight"))
	e.graphCell = reactive.NewState(empty, sched)
	e.highlightCell = reactive.NewState(e.hl.State(), sched)
	e.cameraCell = reactive.NewState(e.cam.State(), sched)

	e.task = sched.CreateTask(e.render)
	e.graphCell.Subscribe(e.task)
	e.highlightCell.Subscribe(e.task)
	e.cameraCell.Subscribe(e.task)

	e.cam.OnChange(func(s camera.State) { e.cameraCell.Set(s) })
	e.sim.OnTick(func() { sched.MarkDirty(e.task) })
	e.sim.OnEnd(func() {
		e.simFrame = 0
		e.saveLayout()
		sched.MarkDirty(e.task)
	})

	sched.Post(e.rebuild)
	return e
}

// Scheduler returns the loop driving the explorer.
func (e *Explorer) Scheduler() *scheduler.Scheduler { return e.sched }

// Run drives the scheduler from the wall clock until ctx is done.
func (e *Explorer) Run(ctx context.Context) error { return e.sched.Run(ctx) }

// Close stops the simulation, the pending refit and any search in flight.
func (e *Explorer) Close() {
	e.sched.Post(func() {
		e.tracker.Cancel()
		e.cam.Cancel()
		e.stopSimulation()
		if e.fitTimer != nil {
			e.fitTimer.Stop()
			e.fitTimer = nil
		}
		e.sched.RemoveTask(e.task)
	})
}

// OnNavigate registers the callback for leaf clicks. It runs on the loop.
func (e *Explorer) OnNavigate(fn func(route string)) {
	e.mu.Lock()
	e.onNavigate = fn
	e.mu.Unlock()
}

// OnFrame registers the callback for every composed frame. It runs on the
// loop and must not block.
func (e *Explorer) OnFrame(fn func(render.Frame)) {
	e.mu.Lock()
	e.onFrame = fn
	e.mu.Unlock()
}

// OnStatus registers the callback for status changes.
func (e *Explorer) OnStatus(fn func(Status)) {
	e.mu.Lock()
	e.onStatus = fn
	e.mu.Unlock()
}

// Frame returns the most recently composed frame.
func (e *Explorer) Frame() render.Frame {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frame
}

// Status returns the most recent status.
func (e *Explorer) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Load fetches a dataset on the calling goroutine and installs it. A fetch
// failure installs an empty graph and raises the data error flag.
func (e *Explorer) Load(ctx context.Context, f source.Fetcher, credential string) error {
	p, err := f.Fetch(ctx, source.Request{TeamID: e.teamID, Credential: credential})
	if err != nil && !orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeData) {
		err = orbiterrors.NewDataError("fetcher", err)
	}
	e.sched.Post(func() {
		if err != nil {
			e.logger.Warn("graph fetch failed", zap.Error(err))
			e.payload = graph.Payload{}
			e.dataErr = true
			e.message = orbiterrors.UserMessage(err)
		} else {
			e.payload = p
			e.dataErr = false
			e.message = ""
		}
		e.rebuild()
	})
	return err
}

// rebuild replaces the graph from the current payload, reheats the layout
// and schedules a refit. The refit is a fixed delay, not a completion
// barrier.
func (e *Explorer) rebuild() {
	g, rep := graph.Build(e.payload.Nodes, e.payload.Links, &graph.Options{
		IncludeSynthetic: e.includeSynthetic,
		Rings:            e.rings,
		Rand:             e.rng,
		Logger:           e.logger.Named("graph"),
	})
	e.report = rep

	if e.index != nil {
		indexed := e.payload
		if e.includeSynthetic {
			indexed = indexed.WithSynthetic()
		}
		e.index.Reset(indexed)
	}

	e.tracker.Cancel()
	e.hovered = ""
	e.hl.SetGraph(g)
	e.cam.SetContent(g)
	e.stopSimulation()
	e.sim.SetGraph(g)
	e.restoreLayout(g)
	e.startSimulation()

	if e.fitTimer != nil {
		e.fitTimer.Stop()
	}
	e.fitTimer = e.sched.After(e.autoFitDelay, func() {
		e.fitTimer = nil
		e.cam.Reset()
	})

	e.logger.Info("graph rebuilt",
		zap.Int("nodes", g.Len()),
		zap.Int("links", len(g.Links())),
		zap.Bool("synthetic", e.includeSynthetic),
		zap.Int("pruned", rep.PrunedNodes))

	reactive.RunBatch(e.sched, func() {
		e.graphCell.Set(g)
		e.publishHighlight()
	})
}

func (e *Explorer) restoreLayout(g *graph.Graph) {
	if e.layouts == nil || g.Len() == 0 {
		return
	}
	if pos, ok := e.layouts.Lookup(g, e.sim.Params()); ok {
		n := e.sim.Restore(pos)
		e.logger.Debug("restored cached layout", zap.Int("nodes", n))
	}
}

func (e *Explorer) saveLayout() {
	g := e.sim.Graph()
	if e.layouts == nil || g == nil || g.Len() == 0 {
		return
	}
	if err := e.layouts.Store(g, e.sim.Params(), e.sim.Positions()); err != nil {
		e.logger.Warn("saving layout failed", zap.Error(err))
	}
}

func (e *Explorer) startSimulation() {
	if e.simFrame != 0 || !e.sim.Running() {
		return
	}
	e.simFrame = e.sched.RequestFrame(e.pump)
}

func (e *Explorer) stopSimulation() {
	if e.simFrame != 0 {
		e.sched.CancelFrame(e.simFrame)
		e.simFrame = 0
	}
}

// pump advances the layout one tick per frame while it has energy.
func (e *Explorer) pump(time.Time) {
	e.simFrame = 0
	if e.sim.Tick() && e.sim.Running() {
		e.simFrame = e.sched.RequestFrame(e.pump)
	}
}

func (e *Explorer) publishHighlight() {
	e.highlightCell.Set(e.hl.State())
}

// render composes a frame from the current cells. It runs as the dirty task.
func (e *Explorer) render() {
	w, h := e.cam.Viewport()
	f := e.pipe.Compose(e.graphCell.Get(), e.highlightCell.Get(), e.cameraCell.Get(), w, h)
	if f.Message == "" {
		f.Message = e.message
	}
	st := e.buildStatus()

	e.mu.Lock()
	e.frame = f
	changed := st != e.status
	e.status = st
	onFrame, onStatus := e.onFrame, e.onStatus
	e.mu.Unlock()

	if onFrame != nil {
		onFrame(f)
	}
	if changed && onStatus != nil {
		onStatus(st)
	}
}

func (e *Explorer) invalidate() { e.sched.MarkDirty(e.task) }
