// Package pkg provides the core libraries for wafermap, the place-and-route
// core of HICANN neuromorphic wafers.
//
// # Overview
//
// Wafermap maps spike traffic onto wafer hardware in two steps: it routes
// L1 buses from a source chip to every target chip without two routes
// sharing a crossbar switch, and it allocates the synapse drivers and
// synapse rows each incoming vertical line needs on a chip. The pkg
// directory is organized into three areas:
//
//  1. Domain logic ([hicann], [route], [drivers], [reduce], [synapse])
//  2. Orchestration ([pipeline]) and output ([render/nodelink])
//  3. Infrastructure ([cache], [errors], [observability], [buildinfo])
//
// # Architecture
//
// The typical data flow through wafermap:
//
//	TOML problem
//	     ↓
//	[route] package (switch-constrained shortest paths)
//	     ↓
//	[drivers] package (driver intervals per vertical line)
//	     ↓
//	[synapse] package (half-rows per hardware property, concrete synapses)
//	     ↓
//	JSON result, DOT/SVG route tree
//
// # Quick Start
//
// Route a source bus to a target chip:
//
//	g := route.NewAdjacencyGraph()
//	src := g.AddBus(hicann.Chip{X: 0, Y: 0}, hicann.Horizontal)
//	dst := g.AddBus(hicann.Chip{X: 1, Y: 0}, hicann.Horizontal)
//	_ = g.Connect(src, dst)
//
//	r, _ := route.New(g, route.UnitWeight, src, route.PerRoute)
//	r.AddTarget(route.Target{Chip: hicann.Chip{X: 1, Y: 0}, Orientation: hicann.Horizontal})
//	_ = r.Run()
//
// Allocate drivers and synapse rows on one chip:
//
//	plan, _ := drivers.Plan(hicann.Left, []drivers.Route{drivers.NewRoute(3, 4, 120)})
//	m := synapse.NewManager(plan.Intervals)
//	_ = m.Init(synapseHistograms, halfRowHistograms)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [hicann] - Coordinate value types (chip, bus orientation, driver, synapse
// row and column, vertical line) and the driver geometry oracle.
//
// [route] - Dijkstra search from one source bus to many targets. Accepted
// paths never reuse a crossbar switch, either within one path or across
// the whole run.
//
// [drivers] - Interval allocator for synapse driver slots with defects,
// chain limits and proportional down-scaling when a side is oversubscribed.
//
// [reduce] - Proportional reduction of integer histograms that keeps every
// non-empty bucket alive.
//
// [synapse] - Distribution of a line's drivers over STP modes, input sides
// and decoders, and enumeration of concrete synapses per neuron.
//
// ## Orchestration
//
// [pipeline] - Route → allocate → synapses pipeline with result caching,
// used by the CLI and the HTTP service.
//
// [render/nodelink] - Graphviz drawing of routed trees.
//
// ## Infrastructure
//
// [cache] - File, Redis and null cache backends with content-hash keys.
//
// [errors] - Error codes for the application boundary and HTTP mapping.
//
// [observability] - Hooks for pipeline stages, cache and HTTP metrics.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/route/...              # Specific package
//
// [hicann]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/hicann
// [route]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/route
// [drivers]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/drivers
// [reduce]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/reduce
// [synapse]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/synapse
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/pipeline
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/wafermap/pkg/buildinfo
package pkg
