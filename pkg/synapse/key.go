package synapse

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// Key is the hardware property of a half-row: synaptic input side, column
// parity, driver decoder and STP mode. It is the finest unit rows are
// allocated for.
type Key struct {
	Side    hicann.Side    `json:"side"`
	Parity  hicann.Parity  `json:"parity"`
	Decoder hicann.Decoder `json:"decoder"`
	STP     hicann.STPMode `json:"stp"`
}

// Compare orders keys by side, parity, decoder, then STP mode.
func (k Key) Compare(o Key) int {
	return cmp.Or(
		cmp.Compare(k.Side, o.Side),
		cmp.Compare(k.Parity, o.Parity),
		cmp.Compare(k.Decoder, o.Decoder),
		cmp.Compare(k.STP, o.STP),
	)
}

func (k Key) String() string {
	return fmt.Sprintf("(%s,%s,%d,%s)", k.Side, k.Parity, int(k.Decoder), k.STP)
}

// SideParity is the part of a [Key] fixed by a synapse column.
type SideParity struct {
	Side   hicann.Side
	Parity hicann.Parity
}

// Compare orders by side, then parity.
func (sp SideParity) Compare(o SideParity) int {
	return cmp.Or(cmp.Compare(sp.Side, o.Side), cmp.Compare(sp.Parity, o.Parity))
}

// Histogram counts something (half-rows or synapses) per hardware property.
type Histogram map[Key]int

// Keys returns the keys of h in key order.
func (h Histogram) Keys() []Key {
	keys := make([]Key, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}

// Assignment lists the half-rows assigned to each hardware property of one
// vertical line, in allocation order.
type Assignment map[Key][]hicann.SynapseRow

// Keys returns the keys of a in key order.
func (a Assignment) Keys() []Key {
	keys := make([]Key, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}

// ColumnsMap lists, per input side and parity, the columns that can realize
// a synapse type for one neuron. Column parities must match their key.
type ColumnsMap map[SideParity][]hicann.SynapseColumn

// SynapseType is the biological synapse type, e.g. "excitatory".
type SynapseType string

// BioProperty is what a single synapse request asks for.
type BioProperty struct {
	Type    SynapseType    `json:"type"`
	Decoder hicann.Decoder `json:"decoder"`
	STP     hicann.STPMode `json:"stp"`
}

// NeuronColumns holds the usable columns for each target neuron and type.
type NeuronColumns map[hicann.Neuron]map[SynapseType]ColumnsMap
