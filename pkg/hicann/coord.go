package hicann

import "fmt"

// =============================================================================
// Bus classification
// =============================================================================

// Orientation of a bus segment on the routing graph.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// ParseOrientation accepts "horizontal"/"h" and "vertical"/"v".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "horizontal", "h", "H":
		return Horizontal, nil
	case "vertical", "v", "V":
		return Vertical, nil
	}
	return 0, fmt.Errorf("invalid orientation %q", s)
}

// Chip is the position of a HICANN chip on the wafer.
type Chip struct {
	X int `json:"x" toml:"x"`
	Y int `json:"y" toml:"y"`
}

func (c Chip) String() string {
	return fmt.Sprintf("HICANN(%d,%d)", c.X, c.Y)
}

// =============================================================================
// Sides
// =============================================================================

// Side is the horizontal side of a chip. It selects a block of synapse
// drivers and, for synapse rows, the synaptic input the row feeds.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both sides in key order.
var Sides = [...]Side{Left, Right}

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// ParseSide accepts "left"/"l" and "right"/"r".
func ParseSide(s string) (Side, error) {
	switch s {
	case "left", "l", "L":
		return Left, nil
	case "right", "r", "R":
		return Right, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}

// SideVertical is the vertical half of a chip.
type SideVertical int

const (
	Top SideVertical = iota
	Bottom
)

// Halves lists both vertical halves in key order.
var Halves = [...]SideVertical{Top, Bottom}

func (s SideVertical) String() string {
	if s == Bottom {
		return "bottom"
	}
	return "top"
}

// ParseSideVertical accepts "top"/"t" and "bottom"/"b".
func ParseSideVertical(s string) (SideVertical, error) {
	switch s {
	case "top", "t", "T":
		return Top, nil
	case "bottom", "b", "B":
		return Bottom, nil
	}
	return 0, fmt.Errorf("invalid vertical side %q", s)
}

// =============================================================================
// Synapse drivers
// =============================================================================

// DriversPerQuadrant is the number of synapse drivers on one quadrant.
const DriversPerQuadrant = 56

// DriverOnQuadrant is the position of a driver within its quadrant.
type DriverOnQuadrant int

// Valid reports whether the position lies on a quadrant.
func (d DriverOnQuadrant) Valid() bool {
	return d >= 0 && d < DriversPerQuadrant
}

// Quadrant identifies one of the four driver blocks of a chip.
type Quadrant struct {
	Side Side         `json:"side"`
	Half SideVertical `json:"half"`
}

func (q Quadrant) String() string {
	return fmt.Sprintf("%s-%s", q.Half, q.Side)
}

// Driver is a synapse driver slot.
type Driver struct {
	Quadrant
	Y DriverOnQuadrant `json:"y"`
}

// NewDriver returns the driver at position y of the given quadrant.
func NewDriver(side Side, half SideVertical, y DriverOnQuadrant) Driver {
	return Driver{Quadrant: Quadrant{Side: side, Half: half}, Y: y}
}

func (d Driver) String() string {
	return fmt.Sprintf("Driver(%s,%d)", d.Quadrant, int(d.Y))
}

// =============================================================================
// Lines
// =============================================================================

// VLines is the number of vertical lines on a chip.
const VLines = 256

// VLine is a vertical L1 line on a chip. The lower half enters the left
// driver block, the upper half the right one.
type VLine int

// Side returns the driver block the line can reach.
func (v VLine) Side() Side {
	if v < VLines/2 {
		return Left
	}
	return Right
}

// Valid reports whether v names a line on the chip.
func (v VLine) Valid() bool {
	return v >= 0 && v < VLines
}

func (v VLine) String() string {
	return fmt.Sprintf("VLine(%d)", int(v))
}
