package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/pipeline"
)

// renderCommand creates the render command for drawing routed trees.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts       runOpts
		formatsStr string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "render <problem.toml>",
		Short: "Route a problem and draw the routed tree",
		Long: `Route a problem and draw the tree of accepted paths with Graphviz.

Buses that change orientation along a path are joined by a highlighted
crossbar switch edge; the source and the target buses are outlined.

Examples:
  wafermap render wafer.toml                  # wafer.svg
  wafermap render wafer.toml -f dot,svg       # wafer.dot and wafer.svg
  wafermap render wafer.toml -o out/tree.svg  # explicit output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := apperr.ValidateFormats(formats, pipeline.RenderFormats...); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], formats, detailed, &opts)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label buses with chip and orientation")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, formats []string, detailed bool, opts *runOpts) error {
	p, err := loadProblem(path)
	if err != nil {
		return err
	}
	if len(p.Routing.Buses) == 0 {
		return apperr.New(apperr.ErrCodeInvalidProblem, "%s has no routing section", path)
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.pipelineOptions()
	popts.Formats = formats
	popts.Detailed = detailed

	spinner := newSpinnerWithContext(ctx, "Routing...")
	spinner.Start()
	res, err := runner.Execute(ctx, p, popts)
	if err != nil {
		spinner.StopWithError("Routing failed")
		return err
	}
	artifacts, renderHit, err := runner.RenderWithCacheInfo(ctx, p, res, popts)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()
	res.CacheInfo.RenderHit = renderHit

	printResult(res)
	base := outputBase(path, opts.output, formats)
	for _, format := range formats {
		out := base + "." + format
		if len(formats) == 1 && opts.output != "" {
			out = opts.output
		}
		if err := apperr.ValidateOutputPath(out); err != nil {
			return err
		}
		if err := os.WriteFile(out, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		printFile(out)
	}
	return nil
}

// outputBase derives the path without extension for rendered files. The
// problem file name is used unless an output is given.
func outputBase(input, output string, formats []string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if slices.Contains(formats, ext) {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return output
}
