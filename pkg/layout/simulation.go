// Package layout runs the radial force-directed simulation that places
// categories and leaves on nested rings around pinned hubs.
package layout

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// Force names registered by New.
const (
	ForceCharge  = "charge"
	ForceLink    = "link"
	ForceRadial  = "radial"
	ForceAngular = "angular"
)

// Force is a velocity contribution applied once per tick.
type Force interface {
	// Initialize binds the force to a graph; called on every reheat.
	Initialize(g *graph.Graph)
	// Apply adds this force's velocity deltas scaled by alpha.
	Apply(alpha float64)
}

// Simulation composes named forces over a graph.
type Simulation struct {
	g      *graph.Graph
	nodes  []*graph.Node
	params Params

	forces     map[string]Force
	forceOrder []string

	alpha float64
	ticks int
	ended bool

	onTick func()
	onEnd  func()
	logger *zap.Logger
}

// Options configures New.
type Options struct {
	Params Params
	Rand   *rand.Rand
	Logger *zap.Logger
}

// New creates a simulation with the charge, link, radial and angular forces
// registered. It has no graph until SetGraph.
func New(opts Options) *Simulation {
	p := opts.Params.WithDefaults()
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simulation{
		params: p,
		forces: make(map[string]Force),
		logger: logger,
		ended:  true,
	}
	s.SetForce(ForceCharge, NewChargeForce(p.Charge, rng))
	s.SetForce(ForceLink, NewLinkForce(p.Link, rng))
	s.SetForce(ForceRadial, NewRadialForce(p.Radial))
	s.SetForce(ForceAngular, NewAngularForce(p.Angular))
	return s
}

// Params returns the effective parameters.
func (s *Simulation) Params() Params { return s.params }

// Graph returns the bound graph, or nil.
func (s *Simulation) Graph() *graph.Graph { return s.g }

// SetForce registers or replaces a named force.
func (s *Simulation) SetForce(name string, f Force) {
	if _, exists := s.forces[name]; !exists {
		s.forceOrder = append(s.forceOrder, name)
	}
	s.forces[name] = f
	if s.g != nil {
		f.Initialize(s.g)
	}
}

// RemoveForce unregisters a force.
func (s *Simulation) RemoveForce(name string) {
	if _, ok := s.forces[name]; !ok {
		return
	}
	delete(s.forces, name)
	for i, n := range s.forceOrder {
		if n == name {
			s.forceOrder = append(s.forceOrder[:i], s.forceOrder[i+1:]...)
			break
		}
	}
}

// Force returns a registered force.
func (s *Simulation) Force(name string) (Force, bool) {
	f, ok := s.forces[name]
	return f, ok
}

// ForceNames returns registered names in application order.
func (s *Simulation) ForceNames() []string {
	return append([]string(nil), s.forceOrder...)
}

// OnTick registers a callback run after every tick.
func (s *Simulation) OnTick(fn func()) { s.onTick = fn }

// OnEnd registers a callback run once when the simulation stops.
func (s *Simulation) OnEnd(fn func()) { s.onEnd = fn }

// SetGraph binds g and reheats. Passing the graph already bound is a no-op
// and reports false.
func (s *Simulation) SetGraph(g *graph.Graph) bool {
	if g == s.g {
		return false
	}
	s.g = g
	s.nodes = g.Nodes()
	for _, name := range s.forceOrder {
		s.forces[name].Initialize(g)
	}
	s.Reheat()
	for i := 0; i < s.params.WarmupTicks; i++ {
		s.step()
	}
	s.logger.Debug("simulation reheated",
		zap.Int("nodes", len(s.nodes)),
		zap.Int("links", len(g.Links())))
	return true
}

// Reheat restores full energy and resets the tick budget.
func (s *Simulation) Reheat() {
	s.alpha = 1
	s.ticks = 0
	s.ended = s.g == nil
}

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns how many cooldown ticks have run since the last reheat.
func (s *Simulation) Ticks() int { return s.ticks }

// Running reports whether the simulation still has energy and budget.
func (s *Simulation) Running() bool {
	return s.g != nil && !s.ended && s.alpha >= s.params.AlphaMin && s.ticks < s.params.CooldownTicks
}

// Tick advances one step. It reports false once the simulation has stopped.
func (s *Simulation) Tick() bool {
	if !s.Running() {
		s.finish()
		return false
	}
	s.step()
	s.ticks++
	if s.onTick != nil {
		s.onTick()
	}
	if !s.Running() {
		s.finish()
	}
	return true
}

// Step runs up to n ticks and returns how many ran.
func (s *Simulation) Step(n int) int {
	ran := 0
	for ran < n && s.Tick() {
		ran++
	}
	return ran
}

// Run ticks until the budget is exhausted or alpha reaches its floor.
func (s *Simulation) Run() int {
	return s.Step(math.MaxInt)
}

func (s *Simulation) finish() {
	if s.ended {
		return
	}
	s.ended = true
	s.logger.Debug("simulation settled", zap.Int("ticks", s.ticks), zap.Float64("alpha", s.alpha))
	if s.onEnd != nil {
		s.onEnd()
	}
}

func (s *Simulation) step() {
	s.alpha += (0 - s.alpha) * s.params.AlphaDecay

	for _, name := range s.forceOrder {
		s.forces[name].Apply(s.alpha)
	}

	keep := 1 - s.params.VelocityDecay
	for _, n := range s.nodes {
		if n.Fixed {
			n.X, n.Y = n.FX, n.FY
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= keep
		n.VY *= keep
		n.SetPosition(n.X+n.VX, n.Y+n.VY)
	}
}

// MaxVelocity returns the largest node speed.
func (s *Simulation) MaxVelocity() float64 {
	maxV := 0.0
	for _, n := range s.nodes {
		if n.Fixed {
			continue
		}
		maxV = math.Max(maxV, math.Hypot(n.VX, n.VY))
	}
	return maxV
}

// IsSettled reports whether the layout has stopped: either the tick budget
// or alpha floor was reached, or every free node moves slower than eps.
func (s *Simulation) IsSettled(eps float64) bool {
	if s.g == nil {
		return true
	}
	if !s.Running() {
		return true
	}
	return s.ticks > 0 && s.MaxVelocity() < eps
}

// Positions snapshots node coordinates keyed by id.
func (s *Simulation) Positions() map[string][2]float64 {
	out := make(map[string][2]float64, len(s.nodes))
	for _, n := range s.nodes {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

// Restore moves free nodes to cached coordinates. Unknown ids are ignored.
func (s *Simulation) Restore(pos map[string][2]float64) int {
	ids := make([]string, 0, len(pos))
	for id := range pos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	restored := 0
	for _, id := range ids {
		n, ok := s.g.Node(id)
		if !ok || n.Fixed {
			continue
		}
		p := pos[id]
		n.SetPosition(p[0], p[1])
		n.VX, n.VY = 0, 0
		restored++
	}
	return restored
}
