package route

import (
	"fmt"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// Vertex identifies a bus segment in the routing graph. Vertices are dense:
// a graph with n vertices uses ids 0..n-1.
type Vertex int

// Graph is the routing graph consumed by the [Router].
type Graph interface {
	// NumVertices returns the number of vertices.
	NumVertices() int
	// OutEdges returns the neighbours reachable from v.
	OutEdges(v Vertex) []Vertex
	// Bus returns the chip and orientation of the bus segment v.
	Bus(v Vertex) (hicann.Chip, hicann.Orientation)
}

// Bus describes one vertex of an [AdjacencyGraph].
type Bus struct {
	Chip        hicann.Chip
	Orientation hicann.Orientation
}

// AdjacencyGraph is an undirected in-memory [Graph].
type AdjacencyGraph struct {
	buses []Bus
	adj   [][]Vertex
}

// NewAdjacencyGraph returns an empty graph.
func NewAdjacencyGraph() *AdjacencyGraph {
	return &AdjacencyGraph{}
}

// AddBus appends a vertex and returns its id.
func (g *AdjacencyGraph) AddBus(chip hicann.Chip, o hicann.Orientation) Vertex {
	g.buses = append(g.buses, Bus{Chip: chip, Orientation: o})
	g.adj = append(g.adj, nil)
	return Vertex(len(g.buses) - 1)
}

// Connect adds an undirected edge between a and b. Parallel edges are
// ignored.
func (g *AdjacencyGraph) Connect(a, b Vertex) error {
	if !g.has(a) || !g.has(b) {
		return fmt.Errorf("%w: %d-%d", ErrVertexNotFound, a, b)
	}
	if a == b {
		return fmt.Errorf("self loop on vertex %d", a)
	}
	for _, n := range g.adj[a] {
		if n == b {
			return nil
		}
	}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return nil
}

func (g *AdjacencyGraph) has(v Vertex) bool {
	return v >= 0 && int(v) < len(g.buses)
}

// NumVertices implements [Graph].
func (g *AdjacencyGraph) NumVertices() int { return len(g.buses) }

// OutEdges implements [Graph].
func (g *AdjacencyGraph) OutEdges(v Vertex) []Vertex {
	if !g.has(v) {
		return nil
	}
	return g.adj[v]
}

// Bus implements [Graph].
func (g *AdjacencyGraph) Bus(v Vertex) (hicann.Chip, hicann.Orientation) {
	b := g.buses[v]
	return b.Chip, b.Orientation
}

// NumEdges returns the number of undirected edges.
func (g *AdjacencyGraph) NumEdges() int {
	n := 0
	for _, a := range g.adj {
		n += len(a)
	}
	return n / 2
}
