package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/wafermap/pkg/drivers"
	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/route"
	"github.com/matzehuels/wafermap/pkg/synapse"
)

// Run executes all stages without caching.
func Run(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	res := &Result{ProblemHash: p.Hash()}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := routeStage(ctx, p, opts, res); err != nil {
		return nil, err
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	plans, err := allocateStage(ctx, p, opts, res)
	if err != nil {
		return nil, err
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := synapseStage(ctx, p, opts, plans, res); err != nil {
		return nil, err
	}
	return res, nil
}

func checkContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case err == context.DeadlineExceeded:
		return apperr.Wrap(apperr.ErrCodeTimeout, err, "pipeline timed out")
	default:
		return apperr.Wrap(apperr.ErrCodeCanceled, err, "pipeline canceled")
	}
}

// =============================================================================
// Stage 1: Route
// =============================================================================

func routeStage(ctx context.Context, p *Problem, opts Options, res *Result) (err error) {
	if len(p.Routing.Buses) == 0 {
		return nil
	}
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRouteStart(ctx, int(p.Routing.Source), len(p.Routing.Targets))
	defer func() {
		res.Stats.RouteTime = time.Since(start)
		hooks.OnRouteComplete(ctx, res.Stats.Reached, res.Stats.RouteTime, err)
	}()

	g, w, err := p.Routing.graph()
	if err != nil {
		return err
	}
	mode := opts.exclusiveness(p)
	r, err := route.New(g, w.Func(), p.Routing.Source, mode)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeRoutingFailed, err, "create router")
	}
	for _, t := range p.Routing.Targets {
		r.AddTarget(t.target())
	}
	if err := r.Run(); err != nil {
		return apperr.Wrap(apperr.ErrCodeRoutingFailed, err, "route from bus %d", p.Routing.Source)
	}

	rr := &RoutingResult{
		Source:        r.Source(),
		Exclusiveness: mode.String(),
		Switches:      r.Switches(),
	}
	for _, t := range r.Targets() {
		vs, err := r.VerticesFor(t)
		if err != nil {
			return apperr.Wrap(apperr.ErrCodeRoutingFailed, err, "target %s", t)
		}
		tr := TargetResult{Target: t, Reached: len(vs) > 0}
		for _, v := range vs {
			d, _ := r.Distance(v)
			tr.Paths = append(tr.Paths, PathResult{Vertex: v, Distance: d, Vertices: r.PathTo(v)})
		}
		if tr.Reached {
			res.Stats.Reached++
		}
		rr.Targets = append(rr.Targets, tr)
	}
	res.Routing = rr
	res.Stats.Targets = len(rr.Targets)
	res.Stats.Switches = len(rr.Switches)

	opts.Logger.Debug("routed",
		"source", rr.Source,
		"mode", rr.Exclusiveness,
		"reached", res.Stats.Reached,
		"targets", res.Stats.Targets)
	return nil
}

// =============================================================================
// Stage 2: Allocate
// =============================================================================

func allocateStage(ctx context.Context, p *Problem, opts Options, res *Result) (plans []*drivers.PlanResult, err error) {
	if len(p.Drivers.Requests) == 0 {
		return nil, nil
	}
	hooks := observability.Pipeline()
	start := time.Now()
	defer func() { res.Stats.AllocateTime = time.Since(start) }()

	bySide := p.Drivers.requestsBySide()
	defects := p.Drivers.defects()
	maxChain := opts.maxChainLength(p)

	for _, side := range hicann.Sides {
		requests, ok := bySide[side]
		if !ok {
			continue
		}
		sideStart := time.Now()
		hooks.OnAllocateStart(ctx, side.String(), len(requests))

		plan, err := drivers.Plan(side, requests,
			drivers.WithMaxChainLength(maxChain),
			drivers.WithDefects(defects...),
			drivers.WithLogger(opts.Logger))
		if err != nil {
			err = apperr.Wrap(apperr.ErrCodeAllocationFailed, err, "plan %s side", side)
			hooks.OnAllocateComplete(ctx, side.String(), 0, 0, time.Since(sideStart), err)
			return nil, err
		}
		sr := sideResult(plan, requests)
		assigned := 0
		for _, l := range sr.Lines {
			assigned += l.Drivers
		}
		hooks.OnAllocateComplete(ctx, side.String(), assigned, len(plan.Rejected), time.Since(sideStart), nil)

		res.Stats.DriversAssigned += assigned
		res.Stats.LinesRejected += len(plan.Rejected)
		res.Drivers = append(res.Drivers, sr)
		plans = append(plans, plan)
	}
	return plans, nil
}

// sideResult lists the lines of a plan in request order.
func sideResult(plan *drivers.PlanResult, requests []drivers.Route) SideResult {
	sr := SideResult{
		Side:      plan.Side,
		Available: plan.Available,
		Requested: plan.Requested,
		Rejected:  plan.Rejected,
	}
	for _, r := range requests {
		ivals, ok := plan.Intervals[r.Line]
		if !ok {
			continue
		}
		ld := LineDrivers{Line: r.Line, Drivers: plan.Drivers(r.Line)}
		for _, c := range ivals {
			first, last := c.Bounds()
			ld.Intervals = append(ld.Intervals, IntervalResult{Primary: c.Primary(), First: first, Last: last})
		}
		sr.Lines = append(sr.Lines, ld)
	}
	return sr
}

// =============================================================================
// Stage 3: Synapses
// =============================================================================

func synapseStage(ctx context.Context, p *Problem, opts Options, plans []*drivers.PlanResult, res *Result) (err error) {
	if len(p.Synapses) == 0 {
		return nil
	}
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnSynapseStart(ctx, len(p.Synapses))
	defer func() {
		res.Stats.SynapseTime = time.Since(start)
		hooks.OnSynapseComplete(ctx, res.Stats.SynapsesGranted, res.Stats.SynapseTime, err)
	}()

	allocated := make(map[hicann.VLine][]drivers.ConnectedDrivers)
	for _, plan := range plans {
		for line, ivals := range plan.Intervals {
			allocated[line] = ivals
		}
	}
	m := synapse.NewManager(allocated)

	syn := make(map[hicann.VLine]synapse.Histogram, len(allocated))
	rows := make(map[hicann.VLine]synapse.Histogram, len(allocated))
	for i := range p.Synapses {
		ls := &p.Synapses[i]
		if _, ok := allocated[ls.Line]; ok {
			syn[ls.Line], rows[ls.Line] = ls.histograms()
		}
	}
	// Lines placed without synapse requirements still need a histogram.
	for line := range allocated {
		if _, ok := syn[line]; !ok {
			syn[line], rows[line] = synapse.Histogram{}, synapse.Histogram{}
		}
	}
	if err := m.Init(syn, rows); err != nil {
		return apperr.Wrap(apperr.ErrCodeSynapseFailed, err, "assign half-rows")
	}

	for i := range p.Synapses {
		ls := &p.Synapses[i]
		_, ok := allocated[ls.Line]
		lr, err := lineResult(m, ls, ok)
		if err != nil {
			return err
		}
		for _, g := range lr.Grants {
			res.Stats.SynapsesGranted += len(g.Synapses)
		}
		res.Synapses = append(res.Synapses, lr)
	}
	opts.Logger.Debug("assigned synapses",
		"lines", len(res.Synapses),
		"granted", res.Stats.SynapsesGranted)
	return nil
}

func lineResult(m *synapse.Manager, ls *LineSection, allocated bool) (LineResult, error) {
	lr := LineResult{Line: ls.Line, Unallocated: !allocated}
	if !allocated {
		return lr, nil
	}
	a, err := m.Get(ls.Line)
	if err != nil {
		return lr, apperr.Wrap(apperr.ErrCodeSynapseFailed, err, "%s", ls.Line)
	}
	for _, k := range a.Keys() {
		lr.Rows = append(lr.Rows, RowsResult{Key: k, Rows: slices.Clone(a[k])})
	}
	if len(ls.Requests) == 0 {
		return lr, nil
	}

	on, err := m.GetSynapses(ls.Line, ls.neuronColumns())
	if err != nil {
		return lr, apperr.Wrap(apperr.ErrCodeSynapseFailed, err, "%s", ls.Line)
	}
	for _, req := range ls.Requests {
		g := GrantResult{
			Neuron:    req.Neuron,
			Type:      req.Type,
			Decoder:   req.Decoder,
			STP:       req.STP,
			Requested: req.Count,
			Synapses:  []hicann.Synapse{},
		}
		prop := synapse.BioProperty{Type: req.Type, Decoder: req.Decoder, STP: req.STP}
		for range req.Count {
			s, ok, err := on.GetSynapse(req.Neuron, prop)
			if err != nil {
				return lr, apperr.Wrap(apperr.ErrCodeSynapseFailed, err, "%s", ls.Line)
			}
			if !ok {
				break
			}
			g.Synapses = append(g.Synapses, s)
		}
		lr.Grants = append(lr.Grants, g)
	}
	return lr, nil
}

// Summary returns a one-line description of a result.
func (r *Result) Summary() string {
	return fmt.Sprintf("reached %d/%d targets, %d drivers, %d lines rejected, %d synapses",
		r.Stats.Reached, r.Stats.Targets, r.Stats.DriversAssigned, r.Stats.LinesRejected, r.Stats.SynapsesGranted)
}
