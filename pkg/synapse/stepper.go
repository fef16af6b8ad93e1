package synapse

import (
	"errors"
	"slices"
	"sort"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// ErrExhausted is returned by Stepper.Get after the last synapse.
var ErrExhausted = errors.New("no synapse left")

// span is one (side, parity) option of a stepper.
type span struct {
	rows []hicann.SynapseRow
	cols []hicann.SynapseColumn
}

func (s span) size() int { return len(s.rows) * len(s.cols) }

// Stepper hands out every synapse that realizes one decoder and STP mode,
// each exactly once.
//
// Options are visited in (side, parity) order; within an option the
// half-rows in assignment order and within a row the columns in the order
// given. The position is a single counter, so the stepper never holds
// references into the assignment beyond its own row slices.
type Stepper struct {
	spans []span
	// ends[i] is the position just past span i.
	ends []int
	pos  int
}

// NewStepper returns a stepper over the half-rows of a assigned to decoder
// and stp, crossed with the columns of each matching (side, parity).
func NewStepper(a Assignment, decoder hicann.Decoder, stp hicann.STPMode, columns ColumnsMap) *Stepper {
	options := make([]SideParity, 0, len(columns))
	for sp := range columns {
		options = append(options, sp)
	}
	slices.SortFunc(options, SideParity.Compare)

	s := &Stepper{}
	total := 0
	for _, sp := range options {
		key := Key{Side: sp.Side, Parity: sp.Parity, Decoder: decoder, STP: stp}
		opt := span{rows: a[key], cols: columns[sp]}
		if opt.size() == 0 {
			continue
		}
		total += opt.size()
		s.spans = append(s.spans, opt)
		s.ends = append(s.ends, total)
	}
	return s
}

// Len returns the number of synapses the stepper yields in total.
func (s *Stepper) Len() int {
	if len(s.ends) == 0 {
		return 0
	}
	return s.ends[len(s.ends)-1]
}

// Remaining returns the number of synapses not yet handed out.
func (s *Stepper) Remaining() int {
	return s.Len() - s.pos
}

// HasSynapses reports whether Get will succeed.
func (s *Stepper) HasSynapses() bool {
	return s.pos < s.Len()
}

// Get returns the next synapse and advances.
func (s *Stepper) Get() (hicann.Synapse, error) {
	if !s.HasSynapses() {
		return hicann.Synapse{}, ErrExhausted
	}
	i := sort.SearchInts(s.ends, s.pos+1)
	offset := s.pos
	if i > 0 {
		offset -= s.ends[i-1]
	}
	sp := s.spans[i]
	s.pos++

	return hicann.Synapse{
		Row:    sp.rows[offset/len(sp.cols)],
		Column: sp.cols[offset%len(sp.cols)],
	}, nil
}
