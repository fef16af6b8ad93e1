package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/route"
)

// testTree routes 0 (h) -> 1 (h) -> 2 (v) and 0 -> 3 (h).
func testTree(t *testing.T) Tree {
	t.Helper()
	g := route.NewAdjacencyGraph()
	v0 := g.AddBus(hicann.Chip{X: 0, Y: 0}, hicann.Horizontal)
	v1 := g.AddBus(hicann.Chip{X: 1, Y: 0}, hicann.Horizontal)
	v2 := g.AddBus(hicann.Chip{X: 1, Y: 0}, hicann.Vertical)
	v3 := g.AddBus(hicann.Chip{X: 0, Y: 1}, hicann.Horizontal)
	for _, e := range [][2]route.Vertex{{v0, v1}, {v1, v2}, {v0, v3}} {
		if err := g.Connect(e[0], e[1]); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	return Tree{
		Graph:  g,
		Source: v0,
		Paths:  [][]route.Vertex{{v0, v1, v2}, {v0, v3}},
	}
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(testTree(t), Options{})

	if !strings.Contains(dot, "digraph G") {
		t.Error("ToDOT() output missing digraph declaration")
	}
	for _, n := range []string{"v0 [", "v1 [", "v2 [", "v3 ["} {
		if !strings.Contains(dot, n) {
			t.Errorf("ToDOT() output missing node %q", n)
		}
	}
	if !strings.Contains(dot, "v0 -> v1;") {
		t.Error("ToDOT() output missing plain edge")
	}
	if !strings.Contains(dot, "v1 -> v2 [color=red") {
		t.Error("ToDOT() switch edge should be highlighted")
	}
	if strings.Count(dot, "v0 -> v1") != 1 {
		t.Error("ToDOT() shared edges should appear once")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(testTree(t), Options{Detailed: true})

	if !strings.Contains(dot, `HICANN(1,0)\nvertical`) {
		t.Errorf("ToDOT() detailed output missing bus info:\n%s", dot)
	}
}

func TestToDOT_Empty(t *testing.T) {
	tree := testTree(t)
	tree.Paths = nil
	dot := ToDOT(tree, Options{})

	if !strings.Contains(dot, "v0 [") {
		t.Error("ToDOT() should draw the source without paths")
	}
	if strings.Contains(dot, "->") {
		t.Error("ToDOT() should draw no edges without paths")
	}
}

func TestFmtAttrs(t *testing.T) {
	attrs := fmtAttrs(false, false, hicann.Horizontal, "#1")
	if len(attrs) != 1 || !strings.Contains(attrs[0], "label=") {
		t.Errorf("fmtAttrs() plain node = %v", attrs)
	}

	joined := strings.Join(fmtAttrs(true, true, hicann.Vertical, "#0"), " ")
	for _, want := range []string{"penwidth=3", "peripheries=2", "lightblue"} {
		if !strings.Contains(joined, want) {
			t.Errorf("fmtAttrs() missing %s: %s", want, joined)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(testTree(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
