package drivers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// fixedGeometry offers the same candidates to every line.
func fixedGeometry(ds ...hicann.Driver) hicann.Geometry {
	return hicann.GeometryFunc(func(hicann.VLine, hicann.Side) []hicann.Driver { return ds })
}

func top(y int) hicann.Driver { return hicann.NewDriver(hicann.Left, hicann.Top, hicann.DriverOnQuadrant(y)) }

func snapshot(a *Assignment) map[hicann.Driver]SlotState {
	out := make(map[hicann.Driver]SlotState)
	for _, half := range hicann.Halves {
		for y := hicann.DriverOnQuadrant(0); y.Valid(); y++ {
			out[hicann.NewDriver(a.Side(), half, y)] = a.State(half, y)
		}
	}
	return out
}

func TestAssignmentSnugFit(t *testing.T) {
	// gap around 10 is 8..12 (5 slots), gap around 40 is 14..55.
	a := NewAssignment(hicann.Left, fixedGeometry(top(40), top(10)))
	require.NoError(t, a.AddDefect(hicann.Top, 7))
	require.NoError(t, a.AddDefect(hicann.Top, 13))

	r := NewRoute(3, 4, 10)
	require.True(t, a.Add(&r))
	assert.Equal(t, 4, r.Assigned)

	got := a.Result()[3]
	require.Len(t, got, 1)
	assert.Equal(t, top(10), got[0].Primary())
	first, last := got[0].Bounds()
	assert.Equal(t, hicann.DriverOnQuadrant(8), first)
	assert.Equal(t, hicann.DriverOnQuadrant(11), last)
}

func TestAssignmentPlacesBelowPrimaryFirst(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(20)))

	r := NewRoute(0, 5, 1)
	require.True(t, a.Add(&r))

	first, last := a.Result()[0][0].Bounds()
	assert.Equal(t, hicann.DriverOnQuadrant(16), first)
	assert.Equal(t, hicann.DriverOnQuadrant(20), last)
}

func TestAssignmentTieUsesGeometryOrder(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(
		hicann.NewDriver(hicann.Left, hicann.Bottom, 30),
		top(30),
	))

	r := NewRoute(0, 2, 1)
	require.True(t, a.Add(&r))
	assert.Equal(t, hicann.Bottom, a.Result()[0][0].Primary().Half)
}

func TestAssignmentClipping(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(3), top(10)))
	require.NoError(t, a.AddDefect(hicann.Top, 5))
	require.NoError(t, a.AddDefect(hicann.Top, 13))

	r := NewRoute(1, 12, 1)
	require.True(t, a.Add(&r))

	// 0..4 holds 5, 6..12 holds 7: the larger gap wins and clips.
	assert.Equal(t, 7, r.Assigned)
	assert.Less(t, r.Assigned, r.Drivers)
	assert.Equal(t, top(10), a.Result()[1][0].Primary())
	assert.Equal(t, 7, a.Result()[1][0].Len())
}

func TestAssignmentAllDefect(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(1), top(2)))
	require.NoError(t, a.AddDefect(hicann.Top, 1))
	require.NoError(t, a.AddDefect(hicann.Top, 2))

	before := snapshot(a)
	r := NewRoute(0, 1, 1)
	assert.False(t, a.Add(&r))
	assert.Equal(t, before, snapshot(a))
	assert.Empty(t, a.Result())
	assert.Equal(t, 1, r.Assigned)
}

func TestAssignmentDefects(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(1)))
	require.NoError(t, a.AddDefect(hicann.Top, 4))

	assert.ErrorIs(t, a.AddDefect(hicann.Top, 4), ErrSlotTaken)
	assert.ErrorIs(t, a.AddDefect(hicann.Top, hicann.DriversPerQuadrant), ErrInvalidSlot)
	assert.Equal(t, SlotDefect, a.State(hicann.Top, 4))

	r := NewRoute(0, 2, 1)
	require.True(t, a.Add(&r))
	assert.ErrorIs(t, a.AddDefect(hicann.Bottom, 0), ErrAllocationStarted)
	assert.Equal(t, 1, a.Count(SlotDefect))
}

func TestAssignmentStateOutsideChip(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(1)))

	assert.Equal(t, SlotDefect, a.State(hicann.SideVertical(2), 0))
	assert.Equal(t, SlotDefect, a.State(hicann.SideVertical(-1), 0))
	assert.Equal(t, SlotDefect, a.State(hicann.Top, hicann.DriversPerQuadrant))

	_, _, ok := a.Owner(hicann.SideVertical(2), 0)
	assert.False(t, ok)
}

func TestAssignmentRejectsEmptyRequests(t *testing.T) {
	a := NewAssignment(hicann.Left, fixedGeometry(top(1)))

	r := NewRoute(0, 0, 1)
	assert.False(t, a.Add(&r))
	assert.False(t, a.Add(&Route{Line: 0, Drivers: Defect, Assigned: 1}))
	assert.False(t, a.Add(nil))
	assert.Equal(t, 0, a.Count(SlotAssigned))
}

func TestAssignmentSeveralIntervalsPerLine(t *testing.T) {
	a := NewAssignment(hicann.Left, nil)

	first := NewRoute(0, 3, 1)
	second := NewRoute(0, 2, 1)
	require.True(t, a.Add(&first))
	require.True(t, a.Add(&second))

	got := a.Result()[0]
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Len())
	assert.Equal(t, 2, got[1].Len())

	line, ival, ok := a.Owner(got[1].Primary().Half, got[1].Primary().Y)
	require.True(t, ok)
	assert.Equal(t, hicann.VLine(0), line)
	assert.Equal(t, got[1], ival)
}

func TestAssignmentAccounting(t *testing.T) {
	a := NewAssignment(hicann.Right, nil)
	require.NoError(t, a.AddDefect(hicann.Top, 50))
	require.NoError(t, a.AddDefect(hicann.Bottom, 3))

	placed := 0
	for i := 0; i < 200; i++ {
		line := hicann.VLine(128 + (i*37)%128)
		r := NewRoute(line, 1+i%6, 1)

		before := snapshot(a)
		if a.Add(&r) {
			assert.LessOrEqual(t, r.Assigned, r.Drivers)
			assert.GreaterOrEqual(t, r.Assigned, 1)
			placed += r.Assigned
		} else {
			assert.Equal(t, before, snapshot(a), "failed add mutated state")
		}
		require.Equal(t, placed, a.Count(SlotAssigned))
	}

	assert.Equal(t, 2, a.Count(SlotDefect))
	assert.LessOrEqual(t, placed, 2*hicann.DriversPerQuadrant-2)

	total := 0
	for _, ivals := range a.Result() {
		for _, c := range ivals {
			total += c.Len()
			for _, d := range c.Drivers() {
				assert.Equal(t, SlotAssigned, a.State(d.Half, d.Y))
			}
		}
	}
	assert.Equal(t, placed, total)
}
