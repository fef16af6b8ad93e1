package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

func chip(x, y int) hicann.Chip { return hicann.Chip{X: x, Y: y} }

// sharedSwitchGraph returns a graph where the paths to targets (0,1) and
// (0,2) share the switch between vertices 0 and 1. Target (0,2) has a
// second, equally long path through 4-5-6.
//
//	0 (h, 0,0) ─ 1 (v, 0,0) ─ 2 (v, 0,1) ─ 3 (v, 0,2)
//	│
//	4 (h, 1,0) ─ 5 (v, 1,0) ─ 6 (v, 0,2)
func sharedSwitchGraph(t *testing.T) *AdjacencyGraph {
	t.Helper()
	g := NewAdjacencyGraph()
	g.AddBus(chip(0, 0), hicann.Horizontal)
	g.AddBus(chip(0, 0), hicann.Vertical)
	g.AddBus(chip(0, 1), hicann.Vertical)
	g.AddBus(chip(0, 2), hicann.Vertical)
	g.AddBus(chip(1, 0), hicann.Horizontal)
	g.AddBus(chip(1, 0), hicann.Vertical)
	g.AddBus(chip(0, 2), hicann.Vertical)
	for _, e := range [][2]Vertex{{0, 1}, {1, 2}, {2, 3}, {0, 4}, {4, 5}, {5, 6}} {
		require.NoError(t, g.Connect(e[0], e[1]))
	}
	return g
}

func TestRouterBeforeRun(t *testing.T) {
	g := sharedSwitchGraph(t)
	r, err := New(g, nil, 0, Global)
	require.NoError(t, err)

	assert.Empty(t, r.PathTo(3))

	// no targets: Run is a no-op.
	require.NoError(t, r.Run())
	assert.Empty(t, r.PathTo(3))

	_, err = r.VerticesFor(Target{Chip: chip(0, 1), Orientation: hicann.Vertical})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestRouterGlobalExclusiveness(t *testing.T) {
	g := sharedSwitchGraph(t)
	r, err := New(g, nil, 0, Global)
	require.NoError(t, err)

	near := Target{Chip: chip(0, 1), Orientation: hicann.Vertical}
	far := Target{Chip: chip(0, 2), Orientation: hicann.Vertical}
	r.AddTarget(near)
	r.AddTarget(far)
	require.NoError(t, r.Run())

	got, err := r.VerticesFor(near)
	require.NoError(t, err)
	assert.Equal(t, []Vertex{2}, got)

	// 3 would reuse switch 0-1, so only the detour through 4 counts.
	got, err = r.VerticesFor(far)
	require.NoError(t, err)
	assert.Equal(t, []Vertex{6}, got)

	assert.Equal(t, []Vertex{0, 4, 5, 6}, r.PathTo(6))
	assert.Equal(t, []Switch{{Horizontal: 0, Vertical: 1}, {Horizontal: 4, Vertical: 5}}, r.Switches())
}

func TestRouterPerRouteExclusiveness(t *testing.T) {
	g := sharedSwitchGraph(t)
	r, err := New(g, nil, 0, PerRoute)
	require.NoError(t, err)

	far := Target{Chip: chip(0, 2), Orientation: hicann.Vertical}
	r.AddTarget(Target{Chip: chip(0, 1), Orientation: hicann.Vertical})
	r.AddTarget(far)
	require.NoError(t, r.Run())

	got, err := r.VerticesFor(far)
	require.NoError(t, err)
	assert.Equal(t, []Vertex{3, 6}, got)
}

func TestRouterBusInTwoSwitches(t *testing.T) {
	// 0 (h) ─ 1 (v) ─ 2 (h): bus 1 would need two switches.
	g := NewAdjacencyGraph()
	g.AddBus(chip(0, 0), hicann.Horizontal)
	g.AddBus(chip(0, 0), hicann.Vertical)
	g.AddBus(chip(3, 3), hicann.Horizontal)
	require.NoError(t, g.Connect(0, 1))
	require.NoError(t, g.Connect(1, 2))

	r, err := New(g, nil, 0, PerRoute)
	require.NoError(t, err)
	target := Target{Chip: chip(3, 3), Orientation: hicann.Horizontal}
	r.AddTarget(target)
	require.NoError(t, r.Run())

	got, err := r.VerticesFor(target)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []Vertex{0, 1, 2}, r.PathTo(2))
	assert.Empty(t, r.Switches())
}

func TestRouterSourceIsTarget(t *testing.T) {
	g := NewAdjacencyGraph()
	g.AddBus(chip(2, 2), hicann.Horizontal)

	r, err := New(g, nil, 0, Global)
	require.NoError(t, err)
	target := Target{Chip: chip(2, 2), Orientation: hicann.Horizontal}
	r.AddTarget(target)
	require.NoError(t, r.Run())

	got, err := r.VerticesFor(target)
	require.NoError(t, err)
	assert.Equal(t, []Vertex{0}, got)
	assert.Equal(t, []Vertex{0}, r.PathTo(0))
}

func TestRouterWeights(t *testing.T) {
	// two routes to chip (0,2): direct via 1 with a heavy bus, or via 4.
	g := sharedSwitchGraph(t)
	w := NewEdgeWeights()
	require.NoError(t, w.SetVertex(1, 10))

	r, err := New(g, w.Func(), 0, Global)
	require.NoError(t, err)
	r.AddTarget(Target{Chip: chip(0, 2), Orientation: hicann.Vertical})
	require.NoError(t, r.Run())

	d, ok := r.Distance(6)
	require.True(t, ok)
	assert.Equal(t, 3.0, d)

	// both edges touching bus 1 cost 10.
	d, ok = r.Distance(3)
	require.True(t, ok)
	assert.Equal(t, 21.0, d)
}

func TestRouterUnreachable(t *testing.T) {
	g := NewAdjacencyGraph()
	g.AddBus(chip(0, 0), hicann.Horizontal)
	g.AddBus(chip(9, 9), hicann.Vertical)

	r, err := New(g, nil, 0, Global)
	require.NoError(t, err)
	r.AddTarget(Target{Chip: chip(9, 9), Orientation: hicann.Vertical})
	require.NoError(t, r.Run())

	assert.Empty(t, r.PathTo(1))
	_, ok := r.Distance(1)
	assert.False(t, ok)
}

func TestRouterNegativeWeight(t *testing.T) {
	g := sharedSwitchGraph(t)
	r, err := New(g, func(a, b Vertex) float64 { return -1 }, 0, Global)
	require.NoError(t, err)
	r.AddTarget(Target{Chip: chip(0, 1), Orientation: hicann.Vertical})

	assert.ErrorIs(t, r.Run(), ErrNegativeWeight)
}

func TestNewValidation(t *testing.T) {
	g := sharedSwitchGraph(t)

	_, err := New(nil, nil, 0, Global)
	assert.ErrorIs(t, err, ErrNilGraph)

	_, err = New(g, nil, 99, Global)
	assert.ErrorIs(t, err, ErrVertexNotFound)

	_, err = New(g, nil, 0, Exclusiveness(7))
	assert.ErrorIs(t, err, ErrInvalidExclusiveness)
}

func TestParseExclusiveness(t *testing.T) {
	tests := []struct {
		in   string
		want Exclusiveness
		ok   bool
	}{
		{"global", Global, true},
		{"per-route", PerRoute, true},
		{"per_route", PerRoute, true},
		{"", PerRoute, true},
		{"exclusive", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseExclusiveness(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidExclusiveness, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
