package pipeline

import (
	"context"

	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/render/nodelink"
)

// Render draws the routed tree of res in every format of opts. The problem
// supplies the bus coordinates.
func Render(ctx context.Context, p *Problem, res *Result, opts Options) (map[string][]byte, error) {
	if res.Routing == nil {
		return nil, apperr.New(apperr.ErrCodeRenderFailed, "result has no routing")
	}
	g, _, err := p.Routing.graph()
	if err != nil {
		return nil, err
	}
	tree := nodelink.Tree{
		Graph:  g,
		Source: res.Routing.Source,
		Paths:  res.Routing.Paths(),
	}
	dot := nodelink.ToDOT(tree, nodelink.Options{Detailed: opts.Detailed})

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			svg, err := nodelink.RenderSVG(ctx, dot)
			if err != nil {
				return nil, apperr.Wrap(apperr.ErrCodeRenderFailed, err, "render %s", format)
			}
			artifacts[format] = svg
		default:
			return nil, apperr.New(apperr.ErrCodeUnsupported, "unsupported format: %s", format)
		}
	}
	return artifacts, nil
}
