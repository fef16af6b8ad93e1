// Package render groups the visual outputs of wafermap.
//
// The [nodelink] subpackage draws routed trees with Graphviz:
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/wafermap/pkg/render/nodelink
package render
