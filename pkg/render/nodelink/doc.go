// Package nodelink renders routed trees as node-link diagrams.
//
// # Overview
//
// A routed tree is the set of paths the router accepted from one source
// bus. Every bus segment on a path becomes a box; consecutive segments are
// joined by arrows. Arrows that change orientation pass a crossbar switch
// and are highlighted, so switch usage can be checked at a glance.
//
// # Usage
//
// Build a [Tree] from the routing graph and the accepted paths, then
// render:
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//
// The generated DOT lays the tree out left to right, the direction
// spikes travel on the wafer. Vertical buses are filled light blue.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
