package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/route"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the chip coordinate and orientation to node labels.
	// When false, only the vertex id is shown.
	Detailed bool
}

// Tree is a routed tree: the paths accepted by the router, all starting at
// Source.
type Tree struct {
	Graph  route.Graph
	Source route.Vertex
	Paths  [][]route.Vertex
}

type edge struct{ from, to route.Vertex }

// vertices returns every vertex on a path in ascending order, and the
// endpoints of the paths.
func (t Tree) vertices() (all []route.Vertex, ends map[route.Vertex]bool) {
	seen := map[route.Vertex]bool{t.Source: true}
	ends = make(map[route.Vertex]bool)
	for _, p := range t.Paths {
		for _, v := range p {
			seen[v] = true
		}
		if len(p) > 0 {
			ends[p[len(p)-1]] = true
		}
	}
	for v := range seen {
		all = append(all, v)
	}
	slices.Sort(all)
	return all, ends
}

// edges returns the distinct tree edges in path order.
func (t Tree) edges() []edge {
	seen := make(map[edge]bool)
	var out []edge
	for _, p := range t.Paths {
		for i := 1; i < len(p); i++ {
			e := edge{p[i-1], p[i]}
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// ToDOT converts a routed tree to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// The source is drawn bold and every path end with a double border. Edges
// that change bus orientation pass a crossbar switch and are drawn red.
func ToDOT(t Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	vs, ends := t.vertices()
	for _, v := range vs {
		chip, o := t.Graph.Bus(v)
		attrs := fmtAttrs(v == t.Source, ends[v], o, fmtLabel(v, chip, o, opts.Detailed))
		fmt.Fprintf(&buf, "  v%d [%s];\n", int(v), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range t.edges() {
		_, a := t.Graph.Bus(e.from)
		_, b := t.Graph.Bus(e.to)
		if a != b {
			fmt.Fprintf(&buf, "  v%d -> v%d [color=red, penwidth=2];\n", int(e.from), int(e.to))
			continue
		}
		fmt.Fprintf(&buf, "  v%d -> v%d;\n", int(e.from), int(e.to))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(v route.Vertex, chip hicann.Chip, o hicann.Orientation, detailed bool) string {
	id := fmt.Sprintf("#%d", int(v))
	if !detailed {
		return id
	}
	return fmt.Sprintf("%s\n%s\n%s", id, chip, o)
}

func fmtAttrs(source, end bool, o hicann.Orientation, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if o == hicann.Vertical {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if source {
		attrs = append(attrs, "penwidth=3")
	}
	if end {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root tag so the drawing scales from the
// origin regardless of the offsets Graphviz emits.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
