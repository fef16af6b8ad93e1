package pipeline

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/wafermap/pkg/cache"
	"github.com/matzehuels/wafermap/pkg/drivers"
	apperr "github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/route"
	"github.com/matzehuels/wafermap/pkg/synapse"
)

// =============================================================================
// Problem - TOML input
// =============================================================================

// Problem is a place-and-route problem for one routing source and one chip's
// synapse drivers. Every section is optional; stages without input are
// skipped.
type Problem struct {
	Routing  Routing       `toml:"routing" json:"routing"`
	Drivers  DriverSection `toml:"drivers" json:"drivers"`
	Synapses []LineSection `toml:"synapses" json:"synapses,omitempty"`
}

// Routing describes the routing graph, the source bus and the targets.
type Routing struct {
	Source        route.Vertex  `toml:"source" json:"source"`
	Exclusiveness string        `toml:"exclusiveness" json:"exclusiveness,omitempty"`
	Buses         []BusEntry    `toml:"buses" json:"buses,omitempty"`
	Links         []LinkEntry   `toml:"links" json:"links,omitempty"`
	Targets       []TargetEntry `toml:"targets" json:"targets,omitempty"`
}

// BusEntry is one vertex. Ids must be 0..n-1 in order. A positive weight is
// the cost of entering or leaving the bus.
type BusEntry struct {
	ID          route.Vertex       `toml:"id" json:"id"`
	X           int                `toml:"x" json:"x"`
	Y           int                `toml:"y" json:"y"`
	Orientation hicann.Orientation `toml:"orientation" json:"orientation"`
	Weight      float64            `toml:"weight" json:"weight,omitempty"`
}

// TargetEntry is a destination chip and the bus orientation to enter it
// through.
type TargetEntry struct {
	X           int                `toml:"x" json:"x"`
	Y           int                `toml:"y" json:"y"`
	Orientation hicann.Orientation `toml:"orientation" json:"orientation"`
}

func (t TargetEntry) target() route.Target {
	return route.Target{Chip: hicann.Chip{X: t.X, Y: t.Y}, Orientation: t.Orientation}
}

// LinkEntry connects two buses. A positive weight overrides the bus
// weights for this edge.
type LinkEntry struct {
	From   route.Vertex `toml:"from" json:"from"`
	To     route.Vertex `toml:"to" json:"to"`
	Weight float64      `toml:"weight" json:"weight,omitempty"`
}

// DriverSection lists the driver requests of the chip. Each request is
// planned on the side its line enters.
type DriverSection struct {
	MaxChainLength int            `toml:"max_chain_length" json:"max_chain_length,omitempty"`
	Defects        []DefectEntry  `toml:"defects" json:"defects,omitempty"`
	Requests       []RequestEntry `toml:"requests" json:"requests,omitempty"`
}

// DefectEntry marks one driver unusable.
type DefectEntry struct {
	Side hicann.Side         `toml:"side" json:"side"`
	Half hicann.SideVertical `toml:"half" json:"half"`
	Y    int                 `toml:"y" json:"y"`
}

// RequestEntry asks for drivers on a line.
type RequestEntry struct {
	Line     hicann.VLine `toml:"line" json:"line"`
	Drivers  int          `toml:"drivers" json:"drivers"`
	Synapses int          `toml:"synapses" json:"synapses"`
}

// LineSection holds the synapse requirements of one line.
type LineSection struct {
	Line      hicann.VLine     `toml:"line" json:"line"`
	Histogram []HistogramEntry `toml:"histogram" json:"histogram"`
	Columns   []ColumnsEntry   `toml:"columns" json:"columns,omitempty"`
	Requests  []SynapseRequest `toml:"requests" json:"requests,omitempty"`
}

// HistogramEntry gives the half-rows and synapses needed for one hardware
// property.
type HistogramEntry struct {
	Side     hicann.Side    `toml:"side" json:"side"`
	Parity   hicann.Parity  `toml:"parity" json:"parity"`
	Decoder  hicann.Decoder `toml:"decoder" json:"decoder"`
	STP      hicann.STPMode `toml:"stp" json:"stp"`
	Rows     int            `toml:"rows" json:"rows"`
	Synapses int            `toml:"synapses" json:"synapses"`
}

// ColumnsEntry lists the columns realizing a synapse type of a neuron for
// one input side and parity.
type ColumnsEntry struct {
	Neuron  hicann.Neuron          `toml:"neuron" json:"neuron"`
	Type    synapse.SynapseType    `toml:"type" json:"type"`
	Side    hicann.Side            `toml:"side" json:"side"`
	Parity  hicann.Parity          `toml:"parity" json:"parity"`
	Columns []hicann.SynapseColumn `toml:"columns" json:"columns"`
}

// SynapseRequest asks for count synapses from the line to a neuron.
type SynapseRequest struct {
	Neuron  hicann.Neuron       `toml:"neuron" json:"neuron"`
	Type    synapse.SynapseType `toml:"type" json:"type"`
	Decoder hicann.Decoder      `toml:"decoder" json:"decoder"`
	STP     hicann.STPMode      `toml:"stp" json:"stp"`
	Count   int                 `toml:"count" json:"count"`
}

// DecodeProblem reads and validates a TOML problem. Unknown keys are an
// error so that typos do not silently drop requirements.
func DecodeProblem(r io.Reader) (*Problem, error) {
	var p Problem
	md, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidProblem, err, "decode problem")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, apperr.New(apperr.ErrCodeInvalidProblem, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProblem reads a problem file.
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "problem file %s not found", path)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "read %s", path)
	}
	return DecodeProblem(bytes.NewReader(data))
}

// Hash returns a content hash of the problem, used for cache keys.
func (p *Problem) Hash() string {
	data, _ := json.Marshal(p)
	return cache.Hash(data)
}

// =============================================================================
// Validation
// =============================================================================

func invalid(format string, args ...any) error {
	return apperr.New(apperr.ErrCodeInvalidProblem, format, args...)
}

// Validate checks ids, ranges and cross references.
func (p *Problem) Validate() error {
	if err := p.Routing.validate(); err != nil {
		return err
	}
	if err := p.Drivers.validate(); err != nil {
		return err
	}

	requested := make(map[hicann.VLine]bool, len(p.Drivers.Requests))
	for _, r := range p.Drivers.Requests {
		requested[r.Line] = true
	}
	seen := make(map[hicann.VLine]bool, len(p.Synapses))
	for _, ls := range p.Synapses {
		if !requested[ls.Line] {
			return invalid("synapses for %s without a driver request", ls.Line)
		}
		if seen[ls.Line] {
			return invalid("synapses for %s given twice", ls.Line)
		}
		seen[ls.Line] = true
		if err := ls.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Routing) validate() error {
	if _, err := route.ParseExclusiveness(r.Exclusiveness); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidProblem, err, "routing")
	}
	if len(r.Buses) == 0 {
		if len(r.Links) > 0 || len(r.Targets) > 0 {
			return invalid("routing links or targets without buses")
		}
		return nil
	}
	for i, b := range r.Buses {
		if int(b.ID) != i {
			return invalid("bus %d: ids must be 0..%d in order", b.ID, len(r.Buses)-1)
		}
		if b.Weight < 0 {
			return invalid("bus %d: negative weight", b.ID)
		}
	}
	n := route.Vertex(len(r.Buses))
	if r.Source < 0 || r.Source >= n {
		return invalid("source %d is not a bus", r.Source)
	}
	for _, l := range r.Links {
		if l.From < 0 || l.From >= n || l.To < 0 || l.To >= n {
			return invalid("link %d-%d: unknown bus", l.From, l.To)
		}
		if l.From == l.To {
			return invalid("link %d-%d: self loop", l.From, l.To)
		}
		if l.Weight < 0 {
			return invalid("link %d-%d: negative weight", l.From, l.To)
		}
	}
	return nil
}

func (d *DriverSection) validate() error {
	if d.MaxChainLength < 0 || d.MaxChainLength > hicann.DriversPerQuadrant {
		return invalid("max_chain_length must be within 0..%d", hicann.DriversPerQuadrant)
	}
	for _, def := range d.Defects {
		if !hicann.DriverOnQuadrant(def.Y).Valid() {
			return invalid("defect y=%d out of range", def.Y)
		}
	}
	lines := make(map[hicann.VLine]bool, len(d.Requests))
	for _, r := range d.Requests {
		if !r.Line.Valid() {
			return invalid("request line %d out of range", int(r.Line))
		}
		if lines[r.Line] {
			return invalid("%s requested twice", r.Line)
		}
		lines[r.Line] = true
		if r.Drivers < 1 || r.Synapses < 1 {
			return invalid("%s: drivers and synapses must be positive", r.Line)
		}
	}
	return nil
}

func (ls *LineSection) validate() error {
	keys := make(map[synapse.Key]bool, len(ls.Histogram))
	for _, h := range ls.Histogram {
		if !h.Decoder.Valid() {
			return invalid("%s: decoder %d out of range", ls.Line, int(h.Decoder))
		}
		if h.Rows < 0 || h.Synapses < 0 {
			return invalid("%s: negative histogram entry", ls.Line)
		}
		k := h.key()
		if keys[k] {
			return invalid("%s: histogram key %s given twice", ls.Line, k)
		}
		keys[k] = true
	}
	type columnsKey struct {
		neuron hicann.Neuron
		typ    synapse.SynapseType
		sp     synapse.SideParity
	}
	entries := make(map[columnsKey]bool, len(ls.Columns))
	owners := make(map[hicann.SynapseColumn]hicann.Neuron)
	for _, c := range ls.Columns {
		ck := columnsKey{c.Neuron, c.Type, synapse.SideParity{Side: c.Side, Parity: c.Parity}}
		if entries[ck] {
			return invalid("%s: columns of neuron %d type %q on %s %s given twice",
				ls.Line, int(c.Neuron), c.Type, c.Side, c.Parity)
		}
		entries[ck] = true

		seen := make(map[hicann.SynapseColumn]bool, len(c.Columns))
		for _, col := range c.Columns {
			if col < 0 || col >= hicann.Columns {
				return invalid("%s: column %d out of range", ls.Line, int(col))
			}
			if col.Parity() != c.Parity {
				return invalid("%s: column %d is not %s", ls.Line, int(col), c.Parity)
			}
			if seen[col] {
				return invalid("%s: column %d listed twice for neuron %d", ls.Line, int(col), int(c.Neuron))
			}
			seen[col] = true
			if owner, ok := owners[col]; ok && owner != c.Neuron {
				return invalid("%s: column %d claimed by neurons %d and %d",
					ls.Line, int(col), int(owner), int(c.Neuron))
			}
			owners[col] = c.Neuron
		}
	}
	for _, r := range ls.Requests {
		if !r.Decoder.Valid() {
			return invalid("%s: request decoder %d out of range", ls.Line, int(r.Decoder))
		}
		if r.Count < 0 {
			return invalid("%s: negative request count", ls.Line)
		}
	}
	return nil
}

func (h HistogramEntry) key() synapse.Key {
	return synapse.Key{Side: h.Side, Parity: h.Parity, Decoder: h.Decoder, STP: h.STP}
}

// =============================================================================
// Conversion to domain inputs
// =============================================================================

// graph builds the routing graph and its weights.
func (r *Routing) graph() (*route.AdjacencyGraph, *route.EdgeWeights, error) {
	g := route.NewAdjacencyGraph()
	w := route.NewEdgeWeights()
	for _, b := range r.Buses {
		v := g.AddBus(hicann.Chip{X: b.X, Y: b.Y}, b.Orientation)
		if b.Weight > 0 {
			if err := w.SetVertex(v, b.Weight); err != nil {
				return nil, nil, apperr.Wrap(apperr.ErrCodeInvalidProblem, err, "bus %d", v)
			}
		}
	}
	for _, l := range r.Links {
		if err := g.Connect(l.From, l.To); err != nil {
			return nil, nil, apperr.Wrap(apperr.ErrCodeInvalidProblem, err, "link %d-%d", l.From, l.To)
		}
		if l.Weight > 0 {
			if err := w.SetEdge(l.From, l.To, l.Weight); err != nil {
				return nil, nil, apperr.Wrap(apperr.ErrCodeInvalidProblem, err, "link %d-%d", l.From, l.To)
			}
		}
	}
	return g, w, nil
}

// requestsBySide groups the driver requests by the side their line enters.
func (d *DriverSection) requestsBySide() map[hicann.Side][]drivers.Route {
	out := make(map[hicann.Side][]drivers.Route)
	for _, r := range d.Requests {
		side := r.Line.Side()
		out[side] = append(out[side], drivers.NewRoute(r.Line, r.Drivers, r.Synapses))
	}
	return out
}

func (d *DriverSection) defects() []hicann.Driver {
	out := make([]hicann.Driver, len(d.Defects))
	for i, def := range d.Defects {
		out[i] = hicann.NewDriver(def.Side, def.Half, hicann.DriverOnQuadrant(def.Y))
	}
	return out
}

// histograms splits the histogram entries of a line.
func (ls *LineSection) histograms() (syn, rows synapse.Histogram) {
	syn = make(synapse.Histogram, len(ls.Histogram))
	rows = make(synapse.Histogram, len(ls.Histogram))
	for _, h := range ls.Histogram {
		syn[h.key()] = h.Synapses
		rows[h.key()] = h.Rows
	}
	return syn, rows
}

// neuronColumns collects the column entries of a line.
func (ls *LineSection) neuronColumns() synapse.NeuronColumns {
	out := make(synapse.NeuronColumns)
	for _, c := range ls.Columns {
		if out[c.Neuron] == nil {
			out[c.Neuron] = make(map[synapse.SynapseType]synapse.ColumnsMap)
		}
		if out[c.Neuron][c.Type] == nil {
			out[c.Neuron][c.Type] = make(synapse.ColumnsMap)
		}
		sp := synapse.SideParity{Side: c.Side, Parity: c.Parity}
		out[c.Neuron][c.Type][sp] = append(out[c.Neuron][c.Type][sp], c.Columns...)
	}
	return out
}
