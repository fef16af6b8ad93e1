package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/pipeline"
)

// runOpts holds the command-line flags shared by run and render.
type runOpts struct {
	output         string // output file path (stdout if empty for run)
	noCache        bool   // disable the result cache
	refresh        bool   // ignore cached results
	exclusiveness  string // routing mode override
	maxChainLength int    // driver chain override
}

func (o *runOpts) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().StringVar(&o.exclusiveness, "exclusiveness", "", "switch exclusiveness: per-route, global (overrides the problem)")
	cmd.Flags().IntVar(&o.maxChainLength, "max-chain", 0, fmt.Sprintf("maximum drivers per chain, 1..%d (overrides the problem)", hicann.DriversPerQuadrant))
}

func (o *runOpts) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Exclusiveness:  o.exclusiveness,
		MaxChainLength: o.maxChainLength,
		Refresh:        o.refresh,
	}
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run <problem.toml>",
		Short: "Route, allocate drivers and assign synapses",
		Long: `Run the place-and-route pipeline on a TOML problem file and write the JSON result.

Examples:
  wafermap run wafer.toml                   # Result to stdout
  wafermap run wafer.toml -o result.json    # Result to file
  wafermap run wafer.toml --max-chain 8     # Override the chain limit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), args[0], &opts)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func (c *CLI) runRun(ctx context.Context, path string, opts *runOpts) error {
	p, err := loadProblem(path)
	if err != nil {
		return err
	}
	if opts.output != "" {
		if err := apperr.ValidateOutputPath(opts.output); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Running pipeline...")
	spinner.Start()
	res, err := runner.Execute(ctx, p, opts.pipelineOptions())
	if err != nil {
		spinner.StopWithError("Pipeline failed")
		return err
	}
	spinner.Stop()
	prog.done("Pipeline finished")

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if opts.output == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}

	printResult(res)
	printFile(opts.output)
	return nil
}

func loadProblem(path string) (*pipeline.Problem, error) {
	if err := apperr.ValidateProblemPath(path); err != nil {
		return nil, err
	}
	return pipeline.LoadProblem(path)
}
