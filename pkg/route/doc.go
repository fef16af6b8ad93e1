// Package route finds L1 paths from one sending bus to many target chips.
//
// # Overview
//
// The routing graph is supplied through the [Graph] interface: dense vertex
// ids, outgoing neighbours, and for each vertex the chip and orientation of
// its bus segment. A [Target] names a chip and the orientation of the bus
// it must be entered on; any vertex with that classification satisfies it.
//
// # Search
//
// [Router.Run] is a single-source Dijkstra over non-negative weights (see
// [EdgeWeights]). Ties in distance are broken by vertex id, so repeated runs
// produce identical results. Whenever a vertex is finalized and matches a
// registered target, the router walks the predecessor chain back to the
// source and treats every change between horizontal and vertical buses as
// a crossbar switch.
//
// # Switch Exclusiveness
//
// A bus can take part in only one switch. Claims are recorded in a table
// and applied as a transaction per candidate path: if any switch on the path
// conflicts, all claims of that path are rolled back and the vertex does
// not satisfy its target.
//
//   - [PerRoute] clears the table before each candidate, so only conflicts
//     within a single path count.
//   - [Global] keeps the table for the whole run. Since Dijkstra finalizes
//     vertices in order of distance, nearer targets win a contested switch
//     and farther ones must use another path or stay unsatisfied.
//
// # Usage
//
//	r, err := route.New(g, weights.Func(), source, route.Global)
//	if err != nil {
//	    return err
//	}
//	r.AddTarget(route.Target{Chip: hicann.Chip{X: 3, Y: 1}, Orientation: hicann.Vertical})
//	if err := r.Run(); err != nil {
//	    return err
//	}
//	vs, _ := r.VerticesFor(target)
//	path := r.PathTo(vs[0])
package route
