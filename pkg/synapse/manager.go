package synapse

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/wafermap/pkg/drivers"
	"github.com/matzehuels/wafermap/pkg/hicann"
	"github.com/matzehuels/wafermap/pkg/reduce"
)

var (
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("synapse manager already initialized")

	// ErrNotInitialized is returned when rows are queried before Init.
	ErrNotInitialized = errors.New("synapse manager not initialized")

	// ErrMissingHistogram is returned when a line with drivers has no
	// histogram.
	ErrMissingHistogram = errors.New("missing histogram for line")

	// ErrHistogramMismatch is returned when the half-row and synapse
	// histograms of a line do not have the same keys.
	ErrHistogramMismatch = errors.New("half-row and synapse histograms differ")

	// ErrUnallocated is returned for lines without drivers or keys without
	// rows.
	ErrUnallocated = errors.New("no rows allocated")

	// ErrAlreadyRequested is returned by a second GetSynapses for a line.
	ErrAlreadyRequested = errors.New("synapses already requested for line")
)

// Manager distributes the drivers allocated to each vertical line over the
// hardware properties the line needs.
//
// Build it from the driver allocation, call Init once with the requirement
// histograms, then read assignments or step through synapses per line. A
// Manager is not safe for concurrent mutation; reads after Init are.
type Manager struct {
	drivers     map[hicann.VLine][]hicann.Driver
	alloc       map[hicann.VLine]Assignment
	requested   map[hicann.VLine]bool
	initialized bool
}

// NewManager collects the drivers of every line in interval order.
func NewManager(result map[hicann.VLine][]drivers.ConnectedDrivers) *Manager {
	m := &Manager{
		drivers:   make(map[hicann.VLine][]hicann.Driver, len(result)),
		alloc:     make(map[hicann.VLine]Assignment, len(result)),
		requested: make(map[hicann.VLine]bool),
	}
	for line, ivals := range result {
		for _, c := range ivals {
			m.drivers[line] = append(m.drivers[line], c.Drivers()...)
		}
	}
	return m
}

// Lines returns the lines with drivers in ascending order.
func (m *Manager) Lines() []hicann.VLine {
	lines := make([]hicann.VLine, 0, len(m.drivers))
	for l := range m.drivers {
		lines = append(lines, l)
	}
	slices.Sort(lines)
	return lines
}

// Drivers returns the number of drivers allocated to line.
func (m *Manager) Drivers(line hicann.VLine) int {
	return len(m.drivers[line])
}

// Init assigns half-rows to hardware properties for every line.
//
// For each line the available drivers are split across STP modes by their
// synapse counts; the rows of each mode (two per driver) across input
// sides; and the rows of each side across decoders, separately for even and
// odd columns since every row has one half-row of each parity. Rows are
// then taken from the line's drivers in order.
func (m *Manager) Init(synapses, halfRows map[hicann.VLine]Histogram) error {
	if m.initialized {
		return ErrAlreadyInitialized
	}
	for _, line := range m.Lines() {
		syn, ok := synapses[line]
		if !ok {
			return fmt.Errorf("%w: synapses of %s", ErrMissingHistogram, line)
		}
		rows, ok := halfRows[line]
		if !ok {
			return fmt.Errorf("%w: half-rows of %s", ErrMissingHistogram, line)
		}
		if err := sameKeys(syn, rows); err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
	}
	for _, line := range m.Lines() {
		m.alloc[line] = allocate(m.drivers[line], synapses[line], halfRows[line])
	}
	m.initialized = true
	return nil
}

func sameKeys(a, b Histogram) error {
	for k := range a {
		if _, ok := b[k]; !ok {
			return fmt.Errorf("%w: %s", ErrHistogramMismatch, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			return fmt.Errorf("%w: %s", ErrHistogramMismatch, k)
		}
	}
	return nil
}

// allocate runs the reduction cascade for one line.
func allocate(lineDrivers []hicann.Driver, syn, halfRows Histogram) Assignment {
	type sideKey struct {
		stp  hicann.STPMode
		side hicann.Side
	}
	type parityKey struct {
		stp    hicann.STPMode
		side   hicann.Side
		parity hicann.Parity
	}

	halfPerDecoder := make(map[parityKey]map[hicann.Decoder]int)
	synPerDecoder := make(map[parityKey]map[hicann.Decoder]int)
	synPerSide := make(map[hicann.STPMode]map[hicann.Side]int)
	synPerSTP := make(map[hicann.STPMode]int)

	for _, k := range halfRows.Keys() {
		pk := parityKey{k.STP, k.Side, k.Parity}
		if halfPerDecoder[pk] == nil {
			halfPerDecoder[pk] = make(map[hicann.Decoder]int)
			synPerDecoder[pk] = make(map[hicann.Decoder]int)
		}
		halfPerDecoder[pk][k.Decoder] = halfRows[k]
		synPerDecoder[pk][k.Decoder] = syn[k]
		if synPerSide[k.STP] == nil {
			synPerSide[k.STP] = make(map[hicann.Side]int)
		}
		synPerSide[k.STP][k.Side] += syn[k]
		synPerSTP[k.STP] += syn[k]
	}

	// Rows a side needs are the larger of its two parities; drivers a mode
	// needs are half its rows, rounded up.
	rowsPerSide := make(map[hicann.STPMode]map[hicann.Side]int)
	driversPerSTP := make(map[hicann.STPMode]int)
	for pk, decoders := range halfPerDecoder {
		if rowsPerSide[pk.stp] == nil {
			rowsPerSide[pk.stp] = make(map[hicann.Side]int)
		}
		rowsPerSide[pk.stp][pk.side] = max(rowsPerSide[pk.stp][pk.side], reduce.Sum(decoders))
	}
	for stp, sides := range rowsPerSide {
		driversPerSTP[stp] = (reduce.Sum(sides) + hicann.RowsPerDriver - 1) / hicann.RowsPerDriver
	}

	assignedDrivers := reduce.Reduce(driversPerSTP, synPerSTP, len(lineDrivers))

	assignedRows := make(map[hicann.STPMode]map[hicann.Side]int)
	for stp, sides := range rowsPerSide {
		assignedRows[stp] = reduce.Reduce(sides, synPerSide[stp], assignedDrivers[stp]*hicann.RowsPerDriver)
	}

	assignedHalf := make(map[parityKey]map[hicann.Decoder]int)
	for pk, decoders := range halfPerDecoder {
		assignedHalf[pk] = reduce.Reduce(decoders, synPerDecoder[pk], assignedRows[pk.stp][pk.side])
	}

	out := make(Assignment)
	free := lineDrivers
	for _, stp := range sortedKeys(assignedDrivers) {
		n := min(assignedDrivers[stp], len(free))
		var rows []hicann.SynapseRow
		for _, d := range free[:n] {
			r := hicann.Rows(d)
			rows = append(rows, r[:]...)
		}
		free = free[n:]

		for _, side := range sortedKeys(assignedRows[stp]) {
			n := min(assignedRows[stp][side], len(rows))
			sideRows := rows[:n]
			rows = rows[n:]

			for _, parity := range hicann.Parities {
				decoders, ok := assignedHalf[parityKey{stp, side, parity}]
				if !ok {
					continue
				}
				parityRows := sideRows
				for _, dec := range sortedKeys(decoders) {
					n := min(decoders[dec], len(parityRows))
					if n == 0 {
						continue
					}
					key := Key{Side: side, Parity: parity, Decoder: dec, STP: stp}
					out[key] = append(out[key], parityRows[:n]...)
					parityRows = parityRows[n:]
				}
			}
		}
	}
	return out
}

func sortedKeys[K ~int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the assignment of line.
func (m *Manager) Get(line hicann.VLine) (Assignment, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	a, ok := m.alloc[line]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnallocated, line)
	}
	return a, nil
}

// Rows returns the half-rows of line assigned to key.
func (m *Manager) Rows(line hicann.VLine, key Key) ([]hicann.SynapseRow, error) {
	a, err := m.Get(line)
	if err != nil {
		return nil, err
	}
	rows, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnallocated, line, key)
	}
	return rows, nil
}

// GetSynapses returns the synapse view of line. It may be called once per
// line so that no synapse is handed out twice.
func (m *Manager) GetSynapses(line hicann.VLine, columns NeuronColumns) (*SynapsesOnVLine, error) {
	a, err := m.Get(line)
	if err != nil {
		return nil, err
	}
	if m.requested[line] {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRequested, line)
	}
	m.requested[line] = true
	return newSynapsesOnVLine(line, a, columns), nil
}
