package route

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// Sentinel errors returned by the router.
var (
	// ErrNilGraph indicates that no routing graph was supplied.
	ErrNilGraph = errors.New("route: graph is nil")

	// ErrVertexNotFound indicates a vertex outside the graph.
	ErrVertexNotFound = errors.New("route: vertex not found in graph")

	// ErrNegativeWeight indicates an edge with a negative or NaN weight.
	ErrNegativeWeight = errors.New("route: negative edge weight encountered")

	// ErrUnknownTarget indicates a query for a target that was never added.
	ErrUnknownTarget = errors.New("route: target not registered")

	// ErrInvalidExclusiveness indicates an unknown switch exclusiveness mode.
	ErrInvalidExclusiveness = errors.New("route: invalid switch exclusiveness")
)

// Exclusiveness selects how long a claimed crossbar switch stays blocked.
type Exclusiveness int

const (
	// PerRoute checks switch conflicts only within a single path.
	PerRoute Exclusiveness = iota
	// Global keeps switches claimed for the whole run, so a switch serves
	// the nearest target that needs it.
	Global
)

func (e Exclusiveness) String() string {
	switch e {
	case PerRoute:
		return "per-route"
	case Global:
		return "global"
	}
	return fmt.Sprintf("Exclusiveness(%d)", int(e))
}

// ParseExclusiveness parses "per-route" or "global".
func ParseExclusiveness(s string) (Exclusiveness, error) {
	switch strings.ToLower(s) {
	case "per-route", "per_route", "perroute", "":
		return PerRoute, nil
	case "global":
		return Global, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidExclusiveness, s)
}

// Target is a destination chip entered through a bus of the given
// orientation. Every vertex with that classification satisfies it.
type Target struct {
	Chip        hicann.Chip        `json:"chip"`
	Orientation hicann.Orientation `json:"orientation"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.Chip, t.Orientation)
}

// Router searches shortest paths from one source bus to many targets and
// keeps paths from sharing a crossbar switch.
//
// A Router is used by one goroutine: add targets, Run, then query.
type Router struct {
	g      Graph
	weight WeightFunc
	source Vertex
	mode   Exclusiveness

	targets  map[Target][]Vertex
	pred     []Vertex
	dist     []float64
	table    *switchTable
	switches map[Switch]struct{}
}

// New returns a router for paths starting at source. A nil weight function
// weighs every edge with one.
func New(g Graph, weight WeightFunc, source Vertex, mode Exclusiveness) (*Router, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if source < 0 || int(source) >= g.NumVertices() {
		return nil, fmt.Errorf("%w: source %d", ErrVertexNotFound, source)
	}
	if mode != PerRoute && mode != Global {
		return nil, fmt.Errorf("%w: %d", ErrInvalidExclusiveness, int(mode))
	}
	if weight == nil {
		weight = UnitWeight
	}
	return &Router{
		g:        g,
		weight:   weight,
		source:   source,
		mode:     mode,
		targets:  make(map[Target][]Vertex),
		table:    newSwitchTable(),
		switches: make(map[Switch]struct{}),
	}, nil
}

// Source returns the start vertex.
func (r *Router) Source() Vertex { return r.source }

// Mode returns the switch exclusiveness.
func (r *Router) Mode() Exclusiveness { return r.mode }

// AddTarget registers t. It takes effect on the next Run.
func (r *Router) AddTarget(t Target) {
	if _, ok := r.targets[t]; !ok {
		r.targets[t] = nil
	}
}

// Targets returns the registered targets in a stable order.
func (r *Router) Targets() []Target {
	out := make([]Target, 0, len(r.targets))
	for t := range r.targets {
		out = append(out, t)
	}
	slices.SortFunc(out, compareTargets)
	return out
}

func compareTargets(a, b Target) int {
	if a.Chip.X != b.Chip.X {
		return a.Chip.X - b.Chip.X
	}
	if a.Chip.Y != b.Chip.Y {
		return a.Chip.Y - b.Chip.Y
	}
	return int(a.Orientation) - int(b.Orientation)
}

// Run searches the graph from the source. Without registered targets it
// returns immediately and leaves the router without paths.
func (r *Router) Run() error {
	if len(r.targets) == 0 {
		return nil
	}

	n := r.g.NumVertices()
	for u := Vertex(0); int(u) < n; u++ {
		for _, v := range r.g.OutEdges(u) {
			if v < 0 || int(v) >= n {
				return fmt.Errorf("%w: edge %d→%d", ErrVertexNotFound, u, v)
			}
			if w := r.weight(u, v); w < 0 || math.IsNaN(w) {
				return fmt.Errorf("%w: edge %d→%d weight=%v", ErrNegativeWeight, u, v, w)
			}
		}
	}

	for t := range r.targets {
		r.targets[t] = nil
	}
	r.table.reset()
	clear(r.switches)

	r.pred = make([]Vertex, n)
	r.dist = make([]float64, n)
	for i := range r.pred {
		r.pred[i] = Vertex(i)
		r.dist[i] = math.Inf(1)
	}
	r.dist[r.source] = 0

	visited := make([]bool, n)
	pq := queue{{v: r.source, dist: 0}}
	for pq.Len() > 0 {
		it := heap.Pop(&pq).(item)
		u := it.v
		if visited[u] {
			continue
		}
		visited[u] = true

		for _, v := range r.g.OutEdges(u) {
			nd := r.dist[u] + r.weight(u, v)
			if nd < r.dist[v] {
				r.dist[v] = nd
				r.pred[v] = u
				heap.Push(&pq, item{v: v, dist: nd})
			}
		}

		r.finish(u)
	}
	return nil
}

// finish checks whether u satisfies a target and records it unless its
// path reuses a switch.
func (r *Router) finish(u Vertex) {
	chip, o := r.g.Bus(u)
	t := Target{Chip: chip, Orientation: o}
	if _, ok := r.targets[t]; !ok {
		return
	}

	if r.mode == PerRoute {
		r.table.reset()
	}
	r.table.begin()

	var claimed []Switch
	for cur := u; cur != r.pred[cur]; cur = r.pred[cur] {
		s, ok := r.switchBetween(cur, r.pred[cur])
		if !ok {
			continue
		}
		if !r.table.claim(s) {
			r.table.rollback()
			return
		}
		claimed = append(claimed, s)
	}
	r.table.commit()

	for _, s := range claimed {
		r.switches[s] = struct{}{}
	}
	r.targets[t] = append(r.targets[t], u)
}

// switchBetween returns the switch joining a and b if their orientations
// differ.
func (r *Router) switchBetween(a, b Vertex) (Switch, bool) {
	_, oa := r.g.Bus(a)
	_, ob := r.g.Bus(b)
	if oa == ob {
		return Switch{}, false
	}
	if oa == hicann.Horizontal {
		return Switch{Horizontal: a, Vertical: b}, true
	}
	return Switch{Horizontal: b, Vertical: a}, true
}

// VerticesFor returns the vertices that satisfied t, in ascending order.
func (r *Router) VerticesFor(t Target) ([]Vertex, error) {
	vs, ok := r.targets[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, t)
	}
	out := slices.Clone(vs)
	slices.Sort(out)
	return out, nil
}

// PathTo returns the path from the source to v, both included. It is empty
// before Run and for vertices the search did not reach.
func (r *Router) PathTo(v Vertex) []Vertex {
	if r.pred == nil || v < 0 || int(v) >= len(r.pred) {
		return nil
	}
	if v != r.source && r.pred[v] == v {
		return nil
	}
	path := []Vertex{v}
	for cur := v; cur != r.pred[cur]; cur = r.pred[cur] {
		path = append(path, r.pred[cur])
	}
	slices.Reverse(path)
	return path
}

// Distance returns the cost of the shortest path to v and whether v was
// reached.
func (r *Router) Distance(v Vertex) (float64, bool) {
	if r.dist == nil || v < 0 || int(v) >= len(r.dist) || math.IsInf(r.dist[v], 1) {
		return 0, false
	}
	return r.dist[v], true
}

// Switches returns the switches used by accepted paths, ordered by
// horizontal then vertical bus.
func (r *Router) Switches() []Switch {
	out := make([]Switch, 0, len(r.switches))
	for s := range r.switches {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Switch) int {
		if a.Horizontal != b.Horizontal {
			return int(a.Horizontal - b.Horizontal)
		}
		return int(a.Vertical - b.Vertical)
	})
	return out
}
