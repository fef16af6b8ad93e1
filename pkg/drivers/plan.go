package drivers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// ErrInvalidRequest is returned by Plan for requests without drivers or
// synapses.
var ErrInvalidRequest = errors.New("route request needs drivers and synapses")

// PlanOptions configures Plan.
type PlanOptions struct {
	// MaxChainLength caps the number of drivers connected to one line.
	MaxChainLength int
	// Defects lists unusable drivers; those on other sides are ignored.
	Defects []hicann.Driver
	// Geometry maps lines to candidate drivers.
	Geometry hicann.Geometry
	// Logger receives debug output about rescaling and rejections.
	Logger *log.Logger
}

// PlanOption configures a PlanOptions.
type PlanOption func(*PlanOptions)

// WithMaxChainLength limits the interval length per line.
func WithMaxChainLength(n int) PlanOption {
	return func(o *PlanOptions) { o.MaxChainLength = n }
}

// WithDefects marks drivers as unusable.
func WithDefects(defects ...hicann.Driver) PlanOption {
	return func(o *PlanOptions) { o.Defects = append(o.Defects, defects...) }
}

// WithGeometry replaces the default driver geometry.
func WithGeometry(g hicann.Geometry) PlanOption {
	return func(o *PlanOptions) { o.Geometry = g }
}

// WithLogger sets the logger for planning decisions.
func WithLogger(l *log.Logger) PlanOption {
	return func(o *PlanOptions) { o.Logger = l }
}

// DefaultPlanOptions returns options without defects and the longest
// possible chain.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		MaxChainLength: hicann.DriversPerQuadrant,
		Geometry:       hicann.DefaultGeometry,
		Logger:         log.New(io.Discard),
	}
}

// PlanResult is the outcome of Plan.
type PlanResult struct {
	Side hicann.Side
	// Intervals are the placed drivers per line.
	Intervals map[hicann.VLine][]ConnectedDrivers
	// Rejected lists lines that could not be placed, in placement order.
	Rejected []hicann.VLine
	// Available is the number of usable drivers on the side.
	Available int
	// Requested is the total number of drivers asked for.
	Requested int
	// Assignment holds the slot state after planning.
	Assignment *Assignment
}

// Drivers returns the number of drivers placed for line.
func (p *PlanResult) Drivers(line hicann.VLine) int {
	n := 0
	for _, c := range p.Intervals[line] {
		n += c.Len()
	}
	return n
}

// Plan assigns drivers to all requests of one chip side.
//
// If the side has enough usable drivers every request is placed with its
// full (chain-limited) size. Otherwise each request is first scaled to its
// share of synapses and the rounding error is spread back until the total
// matches the usable drivers; requests that lose their last driver in that
// step are retried with their full size once everything else is placed.
// Requests are placed in descending synapse order.
func Plan(side hicann.Side, requests []Route, opts ...PlanOption) (*PlanResult, error) {
	cfg := DefaultPlanOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxChainLength < 1 {
		return nil, fmt.Errorf("max chain length must be positive, got %d", cfg.MaxChainLength)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	var defects []hicann.Driver
	for _, d := range cfg.Defects {
		if d.Side == side {
			defects = append(defects, d)
		}
	}

	synapseCount, driverCount := 0, 0
	for _, r := range requests {
		if r.Drivers < 1 || r.Synapses < 1 {
			return nil, fmt.Errorf("%w: %s drivers=%d synapses=%d", ErrInvalidRequest, r.Line, r.Drivers, r.Synapses)
		}
		synapseCount += r.Synapses
		driverCount += r.Drivers
	}
	available := len(hicann.Halves)*hicann.DriversPerQuadrant - len(defects)

	cfg.Logger.Debug("planning drivers",
		"side", side,
		"requested", driverCount,
		"available", available,
		"requests", len(requests))

	list, lastResort := scale(requests, synapseCount, driverCount, available, cfg)

	a := NewAssignment(side, cfg.Geometry)
	for _, d := range defects {
		if err := a.AddDefect(d.Half, d.Y); err != nil {
			return nil, err
		}
	}

	res := &PlanResult{
		Side:       side,
		Available:  available,
		Requested:  driverCount,
		Assignment: a,
	}
	res.Rejected = place(a, list, res.Rejected)
	for i := range lastResort {
		lastResort[i].Assigned = lastResort[i].Drivers
	}
	res.Rejected = place(a, lastResort, res.Rejected)
	res.Intervals = a.Result()

	for _, line := range res.Rejected {
		cfg.Logger.Debug("rejected line", "side", side, "line", line)
	}
	return res, nil
}

// scale computes the number of drivers to place per request.
func scale(requests []Route, synapseCount, driverCount, available int, cfg PlanOptions) (list, lastResort []Route) {
	list = make([]Route, 0, len(requests))

	if driverCount <= available {
		for _, r := range requests {
			n := min(cfg.MaxChainLength, r.Drivers)
			list = append(list, Route{Line: r.Line, Drivers: n, Synapses: r.Synapses, Assigned: n})
		}
		return list, nil
	}

	type pending struct {
		idx   int
		delta float64
	}
	var tooMany, tooFew []pending
	assigned := 0
	rescale := false

	for i, r := range requests {
		share := float64(r.Synapses) / float64(synapseCount) * float64(available)
		n := min(cfg.MaxChainLength, max(1, min(r.Drivers, int(math.Floor(share)))))
		rescale = rescale || n != r.Drivers
		assigned += n
		list = append(list, Route{Line: r.Line, Drivers: min(cfg.MaxChainLength, r.Drivers), Synapses: r.Synapses, Assigned: n})

		switch delta := float64(n) - share; {
		case delta > 0:
			tooMany = append(tooMany, pending{i, delta})
		case delta < 0 && n < r.Drivers:
			tooFew = append(tooFew, pending{i, -delta})
		}
	}
	byDelta := func(ps []pending) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].delta > ps[j].delta })
	}
	byDelta(tooMany)
	byDelta(tooFew)

	cfg.Logger.Debug("initial driver scaling", "assigned", assigned, "rescale", rescale)

	if assigned == available || !rescale {
		return list, nil
	}

	for assigned < available {
		changed := false
		for _, p := range tooFew {
			if assigned == available {
				break
			}
			if r := &list[p.idx]; r.Assigned < r.Drivers {
				r.Assigned++
				assigned++
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	dropped := make(map[int]bool)
	for assigned > available {
		changed := false
		for _, p := range tooMany {
			if assigned <= available {
				break
			}
			r := &list[p.idx]
			if r.Assigned > 0 {
				r.Assigned--
				assigned--
				changed = true
				if r.Assigned == 0 {
					dropped[p.idx] = true
				}
			}
		}
		if !changed {
			break
		}
	}

	kept := list[:0:0]
	for i, r := range list {
		if dropped[i] {
			lastResort = append(lastResort, r)
		} else {
			kept = append(kept, r)
		}
	}
	return kept, lastResort
}

// place adds routes in descending synapse order and appends lines that
// could not be placed to rejected.
func place(a *Assignment, routes []Route, rejected []hicann.VLine) []hicann.VLine {
	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Synapses != sorted[j].Synapses {
			return sorted[i].Synapses > sorted[j].Synapses
		}
		return sorted[i].Line < sorted[j].Line
	})
	for i := range sorted {
		if !a.Add(&sorted[i]) {
			rejected = append(rejected, sorted[i].Line)
		}
	}
	return rejected
}
