package drivers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/wafermap/pkg/hicann"
)

var (
	// ErrQuadrantMismatch is returned when a driver on another quadrant is
	// connected to an interval.
	ErrQuadrantMismatch = errors.New("quadrant of driver does not match primary driver")

	// ErrInvalidRange is returned when an interval range does not contain
	// its primary driver.
	ErrInvalidRange = errors.New("range does not contain primary driver")
)

// ConnectedDrivers is a contiguous run of synapse drivers on one quadrant
// that all receive events through their primary driver.
//
// The zero value is a single-driver interval at the first driver of the
// top-left quadrant.
type ConnectedDrivers struct {
	primary hicann.Driver
	first   hicann.DriverOnQuadrant
	last    hicann.DriverOnQuadrant
}

// NewConnectedDrivers returns an interval holding only primary.
func NewConnectedDrivers(primary hicann.Driver) ConnectedDrivers {
	return ConnectedDrivers{primary: primary, first: primary.Y, last: primary.Y}
}

// NewConnectedDriversRange returns the interval [first, last] on the
// quadrant of primary. first must not lie below and last not above the
// primary driver.
func NewConnectedDriversRange(primary hicann.Driver, first, last hicann.DriverOnQuadrant) (ConnectedDrivers, error) {
	if !first.Valid() || !last.Valid() || first > primary.Y || last < primary.Y {
		return ConnectedDrivers{}, fmt.Errorf("%w: [%d, %d] around %s", ErrInvalidRange, first, last, primary)
	}
	c := NewConnectedDrivers(primary)
	c.ConnectOnQuadrant(first)
	c.ConnectOnQuadrant(last)
	return c, nil
}

// ConnectOnQuadrant adds y and every driver between y and the primary.
func (c *ConnectedDrivers) ConnectOnQuadrant(y hicann.DriverOnQuadrant) {
	c.first = min(c.first, y)
	c.last = max(c.last, y)
}

// Connect adds d and every driver between d and the primary.
func (c *ConnectedDrivers) Connect(d hicann.Driver) error {
	if d.Quadrant != c.primary.Quadrant {
		return fmt.Errorf("%w: %s vs %s", ErrQuadrantMismatch, d, c.primary)
	}
	c.ConnectOnQuadrant(d.Y)
	return nil
}

// Primary returns the driver that is fed by the line.
func (c ConnectedDrivers) Primary() hicann.Driver { return c.primary }

// Quadrant returns the quadrant all drivers lie on.
func (c ConnectedDrivers) Quadrant() hicann.Quadrant { return c.primary.Quadrant }

// Bounds returns the first and last driver position of the interval.
func (c ConnectedDrivers) Bounds() (first, last hicann.DriverOnQuadrant) {
	return c.first, c.last
}

// Len returns the number of drivers in the interval.
func (c ConnectedDrivers) Len() int {
	return int(c.last-c.first) + 1
}

// Contains reports whether d is part of the interval.
func (c ConnectedDrivers) Contains(d hicann.Driver) bool {
	return d.Quadrant == c.primary.Quadrant && d.Y >= c.first && d.Y <= c.last
}

// Drivers returns all drivers in ascending position.
func (c ConnectedDrivers) Drivers() []hicann.Driver {
	out := make([]hicann.Driver, 0, c.Len())
	for y := c.first; y <= c.last; y++ {
		out = append(out, hicann.Driver{Quadrant: c.primary.Quadrant, Y: y})
	}
	return out
}

func (c ConnectedDrivers) String() string {
	var b strings.Builder
	b.WriteString("ConnectedDrivers(")
	b.WriteString(c.primary.String())
	if c.Len() > 1 {
		fmt.Fprintf(&b, ", %d..%d", int(c.first), int(c.last))
	}
	b.WriteString(")")
	return b.String()
}
