package drivers

import (
	"errors"
	"fmt"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

// Defect is the Drivers value of the pseudo route that occupies defect
// slots.
const Defect = -1

var (
	// ErrSlotTaken is returned when a defect is registered on a slot that
	// is already defect or assigned.
	ErrSlotTaken = errors.New("synapse driver already taken")

	// ErrAllocationStarted is returned when a defect is registered after a
	// route has been added.
	ErrAllocationStarted = errors.New("defects must be registered before routes are added")

	// ErrInvalidSlot is returned for positions outside a quadrant.
	ErrInvalidSlot = errors.New("invalid driver position")
)

// Route is a request for synapse drivers by one incoming vertical line.
type Route struct {
	Line hicann.VLine
	// Drivers is the number of drivers the line asks for.
	Drivers int
	// Synapses is the number of synapses the line realizes; it weights the
	// request when drivers are scarce.
	Synapses int
	// Assigned is the number of drivers to place. Add lowers it when no
	// gap is large enough.
	Assigned int
}

// NewRoute returns a route that asks for and wants to place drivers slots.
func NewRoute(line hicann.VLine, drivers, synapses int) Route {
	return Route{Line: line, Drivers: drivers, Synapses: synapses, Assigned: drivers}
}

// SlotState is the allocation state of a driver slot.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotDefect
	SlotAssigned
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotDefect:
		return "defect"
	case SlotAssigned:
		return "assigned"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// interval is shared by all slots it covers; begin and end are half-open.
type interval struct {
	route   Route
	primary hicann.DriverOnQuadrant
	half    hicann.SideVertical
	begin   hicann.DriverOnQuadrant
	end     hicann.DriverOnQuadrant
}

// Assignment places driver intervals for the incoming lines of one chip
// side. It is not safe for concurrent use.
type Assignment struct {
	side    hicann.Side
	geom    hicann.Geometry
	slots   [len(hicann.Halves)][hicann.DriversPerQuadrant]*interval
	placed  []*interval
	started bool
}

// NewAssignment returns an empty assignment for side. A nil geometry uses
// [hicann.DefaultGeometry].
func NewAssignment(side hicann.Side, geom hicann.Geometry) *Assignment {
	if geom == nil {
		geom = hicann.DefaultGeometry
	}
	return &Assignment{side: side, geom: geom}
}

// Side returns the chip side the assignment covers.
func (a *Assignment) Side() hicann.Side { return a.side }

// AddDefect marks a slot as unusable. It must be called before the first
// successful Add.
func (a *Assignment) AddDefect(half hicann.SideVertical, y hicann.DriverOnQuadrant) error {
	if !y.Valid() || (half != hicann.Top && half != hicann.Bottom) {
		return fmt.Errorf("%w: %s %d", ErrInvalidSlot, half, int(y))
	}
	if a.started {
		return ErrAllocationStarted
	}
	if a.slots[half][y] != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, hicann.NewDriver(a.side, half, y))
	}
	a.slots[half][y] = &interval{
		route:   Route{Drivers: Defect},
		primary: y,
		half:    half,
		begin:   y,
		end:     y + 1,
	}
	return nil
}

// option is a possible insertion point for a route.
type option struct {
	half    hicann.SideVertical
	primary hicann.DriverOnQuadrant
	gap     int
}

// Add places route r on the drivers reachable from r.Line.
//
// Among the free candidate drivers it picks the one whose surrounding free
// gap fits r.Assigned with the least excess; candidates earlier in the
// geometry order win ties. When no gap is large enough the largest gap is
// used and r.Assigned is clipped to its size. Add returns false and
// changes nothing when no candidate driver is free or r.Assigned is not
// positive.
func (a *Assignment) Add(r *Route) bool {
	if r == nil || r.Drivers == Defect || r.Assigned < 1 {
		return false
	}
	length := r.Assigned

	var options []option
	for _, d := range a.geom.Candidates(r.Line, a.side) {
		if d.Side != a.side || !d.Y.Valid() || a.slots[d.Half][d.Y] != nil {
			continue
		}
		gap := a.gap(d.Half, d.Y)
		options = append(options, option{half: d.Half, primary: d.Y, gap: gap})
		if gap == length {
			break
		}
	}
	if len(options) == 0 {
		return false
	}

	best := -1
	for i, o := range options {
		if o.gap >= length && (best < 0 || o.gap < options[best].gap) {
			best = i
		}
	}
	if best < 0 {
		for i, o := range options {
			if best < 0 || o.gap > options[best].gap {
				best = i
			}
		}
		r.Assigned = options[best].gap
	}

	a.insert(options[best].half, options[best].primary, *r)
	a.started = true
	return true
}

// gap counts the free slots in the run through y.
func (a *Assignment) gap(half hicann.SideVertical, y hicann.DriverOnQuadrant) int {
	col := &a.slots[half]
	n := 0
	for i := int(y); i < hicann.DriversPerQuadrant && col[i] == nil; i++ {
		n++
	}
	for i := int(y) - 1; i >= 0 && col[i] == nil; i-- {
		n++
	}
	return n
}

// insert claims r.Assigned slots around primary: up to r.Assigned-1 slots
// below the primary position, the rest from the primary upwards. The
// caller guarantees the gap is large enough.
func (a *Assignment) insert(half hicann.SideVertical, primary hicann.DriverOnQuadrant, r Route) {
	col := &a.slots[half]
	length := hicann.DriverOnQuadrant(r.Assigned)

	begin := primary
	for begin > 0 && primary-begin < length-1 && col[begin-1] == nil {
		begin--
	}
	end := begin + length

	ival := &interval{route: r, primary: primary, half: half, begin: begin, end: end}
	for y := begin; y < end; y++ {
		col[y] = ival
	}
	a.placed = append(a.placed, ival)
}

// State returns the state of a slot. Slots outside the chip report
// SlotDefect.
func (a *Assignment) State(half hicann.SideVertical, y hicann.DriverOnQuadrant) SlotState {
	if !y.Valid() || (half != hicann.Top && half != hicann.Bottom) {
		return SlotDefect
	}
	switch ival := a.slots[half][y]; {
	case ival == nil:
		return SlotFree
	case ival.route.Drivers == Defect:
		return SlotDefect
	default:
		return SlotAssigned
	}
}

// Owner returns the line and interval a slot is assigned to.
func (a *Assignment) Owner(half hicann.SideVertical, y hicann.DriverOnQuadrant) (hicann.VLine, ConnectedDrivers, bool) {
	if a.State(half, y) != SlotAssigned {
		return 0, ConnectedDrivers{}, false
	}
	ival := a.slots[half][y]
	return ival.route.Line, ival.connected(a.side), true
}

// Count returns the number of slots in state s.
func (a *Assignment) Count(s SlotState) int {
	n := 0
	for _, half := range hicann.Halves {
		for y := hicann.DriverOnQuadrant(0); y.Valid(); y++ {
			if a.State(half, y) == s {
				n++
			}
		}
	}
	return n
}

// Result returns the placed intervals per line in the order they were
// added.
func (a *Assignment) Result() map[hicann.VLine][]ConnectedDrivers {
	out := make(map[hicann.VLine][]ConnectedDrivers)
	for _, ival := range a.placed {
		out[ival.route.Line] = append(out[ival.route.Line], ival.connected(a.side))
	}
	return out
}

func (ival *interval) connected(side hicann.Side) ConnectedDrivers {
	c := NewConnectedDrivers(hicann.NewDriver(side, ival.half, ival.primary))
	c.ConnectOnQuadrant(ival.begin)
	c.ConnectOnQuadrant(ival.end - 1)
	return c
}
