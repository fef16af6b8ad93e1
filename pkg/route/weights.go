package route

import (
	"errors"
	"fmt"
)

// ErrInvalidWeight is returned for weights below one.
var ErrInvalidWeight = errors.New("weight has to be at least one")

// WeightFunc returns the cost of traversing the edge from → to.
type WeightFunc func(from, to Vertex) float64

// UnitWeight gives every edge weight one.
func UnitWeight(Vertex, Vertex) float64 { return 1 }

type edgeKey struct{ a, b Vertex }

func newEdgeKey(a, b Vertex) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// EdgeWeights holds per-edge and per-vertex costs of an undirected
// routing graph.
//
// An edge with an explicit weight uses it. Otherwise the edge costs the
// larger of its endpoint weights, and one if neither endpoint has a weight.
type EdgeWeights struct {
	edges    map[edgeKey]float64
	vertices map[Vertex]float64
}

// NewEdgeWeights returns weights that are one everywhere.
func NewEdgeWeights() *EdgeWeights {
	return &EdgeWeights{
		edges:    make(map[edgeKey]float64),
		vertices: make(map[Vertex]float64),
	}
}

// SetEdge sets the weight of the edge between a and b.
func (w *EdgeWeights) SetEdge(a, b Vertex, weight float64) error {
	if !(weight >= 1) {
		return fmt.Errorf("%w: edge %d-%d weight=%v", ErrInvalidWeight, a, b, weight)
	}
	w.edges[newEdgeKey(a, b)] = weight
	return nil
}

// SetVertex sets the weight of every edge touching v that has no explicit
// weight of its own.
func (w *EdgeWeights) SetVertex(v Vertex, weight float64) error {
	if !(weight >= 1) {
		return fmt.Errorf("%w: vertex %d weight=%v", ErrInvalidWeight, v, weight)
	}
	w.vertices[v] = weight
	return nil
}

// Weight returns the cost of the edge between a and b.
func (w *EdgeWeights) Weight(a, b Vertex) float64 {
	if weight, ok := w.edges[newEdgeKey(a, b)]; ok {
		return weight
	}
	weight := 1.0
	for _, v := range [2]Vertex{a, b} {
		if vw, ok := w.vertices[v]; ok {
			weight = max(weight, vw)
		}
	}
	return weight
}

// Func returns w.Weight as a [WeightFunc].
func (w *EdgeWeights) Func() WeightFunc {
	return w.Weight
}
