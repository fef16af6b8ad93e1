package hicann

import "fmt"

// RowOnDriver selects one of the two synapse rows served by a driver.
type RowOnDriver int

// RowsPerDriver is the number of synapse rows a driver serves.
const RowsPerDriver = 2

// SynapseRow is a single row of synapses, addressed through its driver.
type SynapseRow struct {
	Driver Driver      `json:"driver"`
	Row    RowOnDriver `json:"row"`
}

func (r SynapseRow) String() string {
	return fmt.Sprintf("Row(%s,%d)", r.Driver, int(r.Row))
}

// Rows returns both rows served by driver d, in row order.
func Rows(d Driver) [RowsPerDriver]SynapseRow {
	return [RowsPerDriver]SynapseRow{{Driver: d, Row: 0}, {Driver: d, Row: 1}}
}

// SynapseColumn is a column of the synapse array, one per neuron.
type SynapseColumn int

// Columns is the number of synapse columns on a chip.
const Columns = 256

// Parity returns the column parity.
func (c SynapseColumn) Parity() Parity {
	if c%2 == 0 {
		return Even
	}
	return Odd
}

// Synapse is the intersection of a row and a column.
type Synapse struct {
	Row    SynapseRow    `json:"row"`
	Column SynapseColumn `json:"column"`
}

func (s Synapse) String() string {
	return fmt.Sprintf("Synapse(%s,%d)", s.Row, int(s.Column))
}

// Neuron is a neuron column on the chip.
type Neuron int

// Parity of synapse columns. Each half-row of a driver drives only one
// column parity.
type Parity int

const (
	Even Parity = iota
	Odd
)

// Parities lists both parities in key order.
var Parities = [...]Parity{Even, Odd}

func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// ParseParity accepts "even" and "odd".
func ParseParity(s string) (Parity, error) {
	switch s {
	case "even":
		return Even, nil
	case "odd":
		return Odd, nil
	}
	return 0, fmt.Errorf("invalid parity %q", s)
}

// Decoder is the two-bit address decoder value of a half-row.
type Decoder int

// Decoders is the number of distinct decoder values.
const Decoders = 4

// Valid reports whether d is a decoder value.
func (d Decoder) Valid() bool {
	return d >= 0 && d < Decoders
}

// STPMode is the short-term plasticity setting of a driver.
type STPMode int

const (
	STPOff STPMode = iota
	STPDepression
	STPFacilitation
)

func (m STPMode) String() string {
	switch m {
	case STPOff:
		return "off"
	case STPDepression:
		return "depression"
	case STPFacilitation:
		return "facilitation"
	}
	return fmt.Sprintf("STPMode(%d)", int(m))
}

// ParseSTPMode accepts "off", "depression" and "facilitation".
func ParseSTPMode(s string) (STPMode, error) {
	switch s {
	case "off", "":
		return STPOff, nil
	case "depression":
		return STPDepression, nil
	case "facilitation":
		return STPFacilitation, nil
	}
	return 0, fmt.Errorf("invalid stp mode %q", s)
}
