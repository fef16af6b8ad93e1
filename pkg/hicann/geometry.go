package hicann

import "sort"

// Geometry tells which synapse drivers a vertical line can feed directly.
//
// Candidates returns the drivers on side that line reaches, ordered nearest
// first. Lines that do not enter side yield nil.
type Geometry interface {
	Candidates(line VLine, side Side) []Driver
}

// GeometryFunc adapts a plain function to [Geometry].
type GeometryFunc func(line VLine, side Side) []Driver

// Candidates calls f.
func (f GeometryFunc) Candidates(line VLine, side Side) []Driver {
	return f(line, side)
}

// driverStride is the spacing between drivers reachable from one line.
const driverStride = 8

// StrideGeometry is the default driver geometry: a line reaches every
// eighth driver of each quadrant on its side, starting at line mod 8.
// Drivers close to the horizontal midline of the chip come first; on
// equal distance the top half wins.
type StrideGeometry struct{}

// DefaultGeometry is the geometry used when none is configured.
var DefaultGeometry Geometry = StrideGeometry{}

// Candidates implements [Geometry].
func (StrideGeometry) Candidates(line VLine, side Side) []Driver {
	if !line.Valid() || line.Side() != side {
		return nil
	}
	class := DriverOnQuadrant(int(line) % driverStride)

	var out []Driver
	for y := class; y.Valid(); y += driverStride {
		out = append(out, NewDriver(side, Top, y), NewDriver(side, Bottom, y))
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := midlineDistance(out[i]), midlineDistance(out[j])
		if di != dj {
			return di < dj
		}
		return out[i].Half < out[j].Half
	})
	return out
}

// midlineDistance counts drivers between d and the horizontal chip midline.
// Top drivers grow towards the midline, bottom drivers away from it.
func midlineDistance(d Driver) int {
	if d.Half == Top {
		return DriversPerQuadrant - 1 - int(d.Y)
	}
	return int(d.Y)
}
