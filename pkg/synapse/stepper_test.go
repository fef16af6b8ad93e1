package synapse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

func row(y hicann.DriverOnQuadrant, r hicann.RowOnDriver) hicann.SynapseRow {
	return hicann.SynapseRow{Driver: hicann.NewDriver(hicann.Left, hicann.Top, y), Row: r}
}

func TestStepperYieldsEverySynapseOnce(t *testing.T) {
	// One neuron over four columns, two half-rows per parity.
	columns := ColumnsMap{
		{hicann.Left, hicann.Even}: {0, 2},
		{hicann.Left, hicann.Odd}:  {1, 3},
	}
	a := Assignment{
		{Side: hicann.Left, Parity: hicann.Even}: {row(0, 0), row(0, 1)},
		{Side: hicann.Left, Parity: hicann.Odd}:  {row(0, 0), row(0, 1)},
	}

	st := NewStepper(a, 0, hicann.STPOff, columns)
	require.Equal(t, 8, st.Len())

	got := make(map[hicann.Synapse]bool)
	for st.HasSynapses() {
		syn, err := st.Get()
		require.NoError(t, err)
		assert.False(t, got[syn], "synapse %s handed out twice", syn)
		got[syn] = true
	}
	assert.Len(t, got, 8)
	assert.Zero(t, st.Remaining())

	for c := hicann.SynapseColumn(0); c < 4; c++ {
		for r := hicann.RowOnDriver(0); r < 2; r++ {
			assert.True(t, got[hicann.Synapse{Row: row(0, r), Column: c}], "missing row %d column %d", r, c)
		}
	}

	_, err := st.Get()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestStepperOrder(t *testing.T) {
	columns := ColumnsMap{
		{hicann.Left, hicann.Odd}:  {1},
		{hicann.Left, hicann.Even}: {0, 2},
	}
	a := Assignment{
		{Side: hicann.Left, Parity: hicann.Even}: {row(3, 0)},
		{Side: hicann.Left, Parity: hicann.Odd}:  {row(3, 1)},
	}

	st := NewStepper(a, 0, hicann.STPOff, columns)
	var got []hicann.Synapse
	for st.HasSynapses() {
		syn, err := st.Get()
		require.NoError(t, err)
		got = append(got, syn)
	}
	assert.Equal(t, []hicann.Synapse{
		{Row: row(3, 0), Column: 0},
		{Row: row(3, 0), Column: 2},
		{Row: row(3, 1), Column: 1},
	}, got)
}

func TestStepperFiltersDecoderAndSTP(t *testing.T) {
	columns := ColumnsMap{{hicann.Left, hicann.Even}: {0}}
	a := Assignment{
		{Side: hicann.Left, Parity: hicann.Even, Decoder: 1, STP: hicann.STPDepression}: {row(0, 0)},
	}

	assert.Zero(t, NewStepper(a, 0, hicann.STPDepression, columns).Len())
	assert.Zero(t, NewStepper(a, 1, hicann.STPOff, columns).Len())
	assert.Equal(t, 1, NewStepper(a, 1, hicann.STPDepression, columns).Len())
}

func TestStepperEmpty(t *testing.T) {
	st := NewStepper(nil, 0, hicann.STPOff, nil)
	assert.False(t, st.HasSynapses())
	_, err := st.Get()
	assert.ErrorIs(t, err, ErrExhausted)
}
