package layout

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

func scenarioGraph(t *testing.T, seed int64) *graph.Graph {
	t.Helper()
	nodes := []graph.RawNode{
		{ID: "hub", Group: 0, Value: 5},
		{ID: "cat-a", Group: 1, Value: 3},
		{ID: "cat-b", Group: 1, Value: 3},
		{ID: "leaf-1", Group: 2, Value: 1, ArticleID: "a1"},
		{ID: "leaf-2", Group: 2, Value: 1, ArticleID: "a2"},
		{ID: "leaf-3", Group: 2, Value: 1, ArticleID: "a3"},
	}
	links := []graph.RawLink{
		{Source: graph.RefID("hub"), Target: graph.RefID("cat-a")},
		{Source: graph.RefID("hub"), Target: graph.RefID("cat-b")},
		{Source: graph.RefID("cat-a"), Target: graph.RefID("leaf-1")},
		{Source: graph.RefID("cat-a"), Target: graph.RefID("leaf-2")},
		{Source: graph.RefID("cat-b"), Target: graph.RefID("leaf-3")},
	}
	g, rep := graph.Build(nodes, links, &graph.Options{Rand: rand.New(rand.NewSource(seed))})
	require.Equal(t, 6, g.Len())
	require.Zero(t, rep.PrunedNodes)
	return g
}

func newSim() *Simulation {
	return New(Options{Rand: rand.New(rand.NewSource(7))})
}

func TestSimulation_SettlesOnRings(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		g := scenarioGraph(t, seed)
		hub, _ := g.Node("hub")
		hx, hy := hub.X, hub.Y

		sim := newSim()
		require.True(t, sim.SetGraph(g))
		ticks := sim.Run()
		assert.LessOrEqual(t, ticks, sim.Params().CooldownTicks)
		assert.False(t, sim.Running())

		assert.Equal(t, hx, hub.X, "hub x moved (seed %d)", seed)
		assert.Equal(t, hy, hub.Y, "hub y moved (seed %d)", seed)

		rings := g.Rings()
		for _, n := range g.Nodes() {
			r := math.Hypot(n.X, n.Y)
			switch n.Tier {
			case graph.Category:
				assert.InDelta(t, rings.Category, r, rings.Category*0.25, "%s radius (seed %d)", n.ID, seed)
			case graph.Leaf:
				assert.InDelta(t, rings.Leaf, r, rings.Leaf*0.25, "%s radius (seed %d)", n.ID, seed)
			}
			assert.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y), "%s has NaN position", n.ID)
		}
	}
}

func TestSimulation_HubsStayPinned(t *testing.T) {
	g, _ := graph.Build(graph.Synthetic().Nodes, graph.Synthetic().Links,
		&graph.Options{Rand: rand.New(rand.NewSource(9))})
	before := map[string][2]float64{}
	for _, n := range g.Nodes() {
		if n.Tier == graph.Hub {
			before[n.ID] = [2]float64{n.X, n.Y}
		}
	}
	require.NotEmpty(t, before)

	sim := newSim()
	sim.SetGraph(g)
	sim.Step(50)

	for id, p := range before {
		n, _ := g.Node(id)
		assert.Equal(t, p[0], n.X, id)
		assert.Equal(t, p[1], n.Y, id)
		assert.Zero(t, n.VX)
		assert.Zero(t, n.VY)
	}
}

func TestSimulation_SameGraphDoesNotReheat(t *testing.T) {
	g := scenarioGraph(t, 1)
	sim := newSim()

	require.True(t, sim.SetGraph(g))
	sim.Step(30)
	alpha := sim.Alpha()
	assert.Less(t, alpha, 1.0)
	assert.Equal(t, 30, sim.Ticks())

	assert.False(t, sim.SetGraph(g))
	assert.Equal(t, alpha, sim.Alpha())
	assert.Equal(t, 30, sim.Ticks())

	other := scenarioGraph(t, 1)
	assert.True(t, sim.SetGraph(other))
	assert.Equal(t, 1.0, sim.Alpha())
	assert.Zero(t, sim.Ticks())
}

func TestSimulation_TickBudgetAndCallbacks(t *testing.T) {
	g := scenarioGraph(t, 5)
	sim := New(Options{Params: Params{CooldownTicks: 25}})

	ticks, ends := 0, 0
	sim.OnTick(func() { ticks++ })
	sim.OnEnd(func() { ends++ })
	sim.SetGraph(g)

	assert.Equal(t, 25, sim.Run())
	assert.Equal(t, 25, ticks)
	assert.Equal(t, 1, ends)
	assert.False(t, sim.Tick())
	assert.Equal(t, 1, ends, "OnEnd fires once")
	assert.True(t, sim.IsSettled(1e-9))

	sim.Reheat()
	assert.True(t, sim.Running())
	assert.False(t, sim.IsSettled(1e-9))
}

func TestSimulation_NoGraph(t *testing.T) {
	sim := newSim()
	assert.False(t, sim.Tick())
	assert.True(t, sim.IsSettled(0.1))
	assert.Zero(t, sim.Run())
}

func TestSimulation_ForceRegistry(t *testing.T) {
	sim := newSim()
	assert.Equal(t, []string{ForceCharge, ForceLink, ForceRadial, ForceAngular}, sim.ForceNames())

	sim.RemoveForce(ForceAngular)
	_, ok := sim.Force(ForceAngular)
	assert.False(t, ok)
	assert.Equal(t, []string{ForceCharge, ForceLink, ForceRadial}, sim.ForceNames())

	sim.SetForce(ForceAngular, NewAngularForce(AngularParams{Strength: 0.1, Passes: 2}))
	f, ok := sim.Force(ForceAngular)
	require.True(t, ok)
	assert.IsType(t, &AngularForce{}, f)
}

func TestAngularForce_PropagatesHubAngle(t *testing.T) {
	g := scenarioGraph(t, 3)
	f := NewAngularForce(AngularParams{Strength: 0.05, Passes: 5})
	f.Initialize(g)

	hub, _ := g.Node("hub")
	hubAngle := math.Atan2(hub.Y, hub.X)
	for _, id := range []string{"hub", "cat-a", "cat-b", "leaf-1", "leaf-2", "leaf-3"} {
		a, ok := f.Target(id)
		require.True(t, ok, id)
		assert.InDelta(t, hubAngle, a, 1e-12, id)
	}

	// One pass only reaches direct neighbors of the hub.
	shallow := NewAngularForce(AngularParams{Strength: 0.05, Passes: 1})
	shallow.Initialize(g)
	_, ok := shallow.Target("cat-a")
	assert.True(t, ok)
	_, ok = shallow.Target("leaf-1")
	assert.False(t, ok)
}

func TestRadialForce_FloorPushesOutward(t *testing.T) {
	g := scenarioGraph(t, 1)
	f := NewRadialForce(DefaultParams().Radial)
	f.Initialize(g)

	n, _ := g.Node("cat-a")
	n.SetPosition(10, 0)
	n.VX, n.VY = 0, 0
	f.Apply(0)

	assert.Greater(t, n.VX, 0.0, "floor push must act even at zero alpha")
	assert.InDelta(t, f.MinRadius()-10, n.VX, 1e-9)
}

func TestLinkForce_Distances(t *testing.T) {
	f := NewLinkForce(DefaultParams().Link, rand.New(rand.NewSource(1)))
	assert.Equal(t, 140.0, f.Distance(graph.Hub, graph.Category))
	assert.Equal(t, 140.0, f.Distance(graph.Category, graph.Hub))
	assert.Equal(t, 160.0, f.Distance(graph.Leaf, graph.Category))
	assert.Equal(t, 200.0, f.Distance(graph.Leaf, graph.Leaf))
	assert.Equal(t, 200.0, f.Distance(graph.Hub, graph.Leaf))
}

func TestAngleDelta(t *testing.T) {
	assert.InDelta(t, 0.5, AngleDelta(0, 0.5), 1e-12)
	assert.InDelta(t, -0.5, AngleDelta(0.5, 0), 1e-12)
	assert.InDelta(t, 0.2, AngleDelta(math.Pi-0.1, -math.Pi+0.1), 1e-9)
	assert.InDelta(t, math.Pi, AngleDelta(0, math.Pi), 1e-12)
}

func TestSimulation_PositionsRestore(t *testing.T) {
	g := scenarioGraph(t, 2)
	sim := newSim()
	sim.SetGraph(g)
	sim.Step(10)
	snap := sim.Positions()

	sim.Step(40)
	restored := sim.Restore(snap)
	assert.Equal(t, 5, restored, "hub is pinned and not restored")

	n, _ := g.Node("leaf-1")
	assert.Equal(t, snap["leaf-1"][0], n.X)
	assert.Equal(t, snap["leaf-1"][1], n.Y)
}

func TestParams_WithDefaults(t *testing.T) {
	p := Params{CooldownTicks: 10, Angular: AngularParams{Passes: 9}}.WithDefaults()
	assert.Equal(t, 10, p.CooldownTicks)
	assert.Equal(t, 5, p.Angular.Passes)
	assert.Equal(t, 0.3, p.VelocityDecay)
	assert.Equal(t, -120.0, p.Charge.Strength)
}
