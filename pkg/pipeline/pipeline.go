// Package pipeline runs a place-and-route problem end to end.
//
// This package implements the route → allocate → synapses pipeline used by
// the CLI and the HTTP service. By centralizing this logic, both entry
// points share validation, caching and result encoding.
//
// # Architecture
//
// The pipeline consists of three stages plus optional rendering:
//
//  1. Route: shortest switch-exclusive paths from the source bus to every
//     target chip ([route.Router])
//  2. Allocate: driver intervals per vertical line, planned per chip side
//     ([drivers.Plan])
//  3. Synapses: half-rows per hardware property and concrete synapses per
//     request ([synapse.Manager])
//  4. Render: DOT or SVG drawing of the routed tree ([nodelink])
//
// Stages without input in the problem are skipped.
//
// # Usage
//
// Load a problem and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	problem, err := pipeline.LoadProblem("wafer.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Execute(ctx, problem, pipeline.Options{})
//
// Render the routed tree:
//
//	artifacts, err := runner.Render(ctx, problem, result, pipeline.Options{Formats: []string{"svg"}})
//
// [nodelink]: github.com/matzehuels/wafermap/pkg/render/nodelink
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/cache"
	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/route"
	"github.com/matzehuels/wafermap/pkg/synapse"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// RenderFormats are the formats Render produces.
var RenderFormats = []string{FormatDOT, FormatSVG}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options overrides parts of a problem and controls caching and rendering.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Exclusiveness overrides the routing section when set.
	Exclusiveness string `json:"exclusiveness,omitempty"`
	// MaxChainLength overrides the driver section when positive.
	MaxChainLength int `json:"max_chain_length,omitempty"`
	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the overrides and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Exclusiveness != "" {
		if _, err := route.ParseExclusiveness(o.Exclusiveness); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "exclusiveness")
		}
	}
	if o.MaxChainLength < 0 || o.MaxChainLength > hicann.DriversPerQuadrant {
		return apperr.New(apperr.ErrCodeInvalidInput, "max chain length must be within 0..%d", hicann.DriversPerQuadrant)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateForRender applies render defaults and checks the formats.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	return apperr.ValidateFormats(o.Formats, RenderFormats...)
}

// exclusiveness resolves the routing mode for p.
func (o *Options) exclusiveness(p *Problem) route.Exclusiveness {
	s := o.Exclusiveness
	if s == "" {
		s = p.Routing.Exclusiveness
	}
	mode, _ := route.ParseExclusiveness(s)
	return mode
}

// maxChainLength resolves the chain limit for p.
func (o *Options) maxChainLength(p *Problem) int {
	switch {
	case o.MaxChainLength > 0:
		return o.MaxChainLength
	case p.Drivers.MaxChainLength > 0:
		return p.Drivers.MaxChainLength
	}
	return hicann.DriversPerQuadrant
}

// ResultKeyOpts returns cache key options for a pipeline result.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		Exclusiveness:  o.Exclusiveness,
		MaxChainLength: o.MaxChainLength,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Detailed: o.Detailed}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this execution; it changes even on cache hits.
	RunID string `json:"run_id"`
	// ProblemHash is the content hash of the input problem.
	ProblemHash string `json:"problem_hash"`

	Routing  *RoutingResult `json:"routing,omitempty"`
	Drivers  []SideResult   `json:"drivers,omitempty"`
	Synapses []LineResult   `json:"synapses,omitempty"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// RoutingResult holds the accepted paths per target.
type RoutingResult struct {
	Source        route.Vertex   `json:"source"`
	Exclusiveness string         `json:"exclusiveness"`
	Targets       []TargetResult `json:"targets"`
	Switches      []route.Switch `json:"switches"`
}

// Paths returns every accepted path.
func (r *RoutingResult) Paths() [][]route.Vertex {
	var out [][]route.Vertex
	for _, t := range r.Targets {
		for _, p := range t.Paths {
			out = append(out, p.Vertices)
		}
	}
	return out
}

// TargetResult lists the vertices that satisfied a target.
type TargetResult struct {
	Target  route.Target `json:"target"`
	Reached bool         `json:"reached"`
	Paths   []PathResult `json:"paths,omitempty"`
}

// PathResult is the path from the source to one target vertex.
type PathResult struct {
	Vertex   route.Vertex   `json:"vertex"`
	Distance float64        `json:"distance"`
	Vertices []route.Vertex `json:"vertices"`
}

// SideResult is the driver plan of one chip side.
type SideResult struct {
	Side      hicann.Side    `json:"side"`
	Available int            `json:"available"`
	Requested int            `json:"requested"`
	Rejected  []hicann.VLine `json:"rejected,omitempty"`
	Lines     []LineDrivers  `json:"lines"`
}

// LineDrivers lists the driver intervals of a line.
type LineDrivers struct {
	Line      hicann.VLine     `json:"line"`
	Drivers   int              `json:"drivers"`
	Intervals []IntervalResult `json:"intervals"`
}

// IntervalResult is one connected driver interval.
type IntervalResult struct {
	Primary hicann.Driver           `json:"primary"`
	First   hicann.DriverOnQuadrant `json:"first"`
	Last    hicann.DriverOnQuadrant `json:"last"`
}

// LineResult is the synapse assignment of a line.
type LineResult struct {
	Line hicann.VLine `json:"line"`
	// Unallocated is set for lines whose driver request was rejected.
	Unallocated bool          `json:"unallocated,omitempty"`
	Rows        []RowsResult  `json:"rows,omitempty"`
	Grants      []GrantResult `json:"grants,omitempty"`
}

// RowsResult lists the half-rows assigned to a hardware property.
type RowsResult struct {
	Key  synapse.Key         `json:"key"`
	Rows []hicann.SynapseRow `json:"rows"`
}

// GrantResult lists the synapses handed out for one request. It holds
// fewer than Requested synapses when the rows ran out.
type GrantResult struct {
	Neuron    hicann.Neuron       `json:"neuron"`
	Type      synapse.SynapseType `json:"type"`
	Decoder   hicann.Decoder      `json:"decoder"`
	STP       hicann.STPMode      `json:"stp"`
	Requested int                 `json:"requested"`
	Synapses  []hicann.Synapse    `json:"synapses"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Targets         int           `json:"targets"`
	Reached         int           `json:"reached"`
	Switches        int           `json:"switches"`
	DriversAssigned int           `json:"drivers_assigned"`
	LinesRejected   int           `json:"lines_rejected"`
	SynapsesGranted int           `json:"synapses_granted"`
	RouteTime       time.Duration `json:"route_time"`
	AllocateTime    time.Duration `json:"allocate_time"`
	SynapseTime     time.Duration `json:"synapse_time"`
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	ResultHit bool `json:"result_hit"` // Whether the result came from cache
	RenderHit bool `json:"render_hit"` // Whether all artifacts came from cache
}
