package synapse

import (
	"errors"
	"fmt"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// ErrUnknownColumns is returned when a request names a neuron or synapse
// type without columns.
var ErrUnknownColumns = errors.New("no synapse columns for neuron and type")

type stepperKey struct {
	neuron hicann.Neuron
	prop   BioProperty
}

// SynapsesOnVLine hands out synapses fed by one vertical line.
//
// One [Stepper] is created lazily per target neuron and bio property, so
// requests for different neurons never compete for the same synapse.
type SynapsesOnVLine struct {
	line       hicann.VLine
	assignment Assignment
	columns    NeuronColumns
	steppers   map[stepperKey]*Stepper
}

func newSynapsesOnVLine(line hicann.VLine, a Assignment, columns NeuronColumns) *SynapsesOnVLine {
	return &SynapsesOnVLine{
		line:       line,
		assignment: a,
		columns:    columns,
		steppers:   make(map[stepperKey]*Stepper),
	}
}

// Line returns the vertical line.
func (s *SynapsesOnVLine) Line() hicann.VLine { return s.line }

// GetSynapse returns the next free synapse that connects the line to
// neuron with the given property. The bool is false once no synapse is
// left; an error means the neuron or type has no columns at all.
func (s *SynapsesOnVLine) GetSynapse(neuron hicann.Neuron, prop BioProperty) (hicann.Synapse, bool, error) {
	key := stepperKey{neuron: neuron, prop: prop}
	st, ok := s.steppers[key]
	if !ok {
		cols, ok := s.columns[neuron][prop.Type]
		if !ok {
			return hicann.Synapse{}, false, fmt.Errorf("%w: neuron %d type %q", ErrUnknownColumns, int(neuron), prop.Type)
		}
		st = NewStepper(s.assignment, prop.Decoder, prop.STP, cols)
		s.steppers[key] = st
	}
	if !st.HasSynapses() {
		return hicann.Synapse{}, false, nil
	}
	syn, err := st.Get()
	if err != nil {
		return hicann.Synapse{}, false, err
	}
	return syn, true, nil
}
