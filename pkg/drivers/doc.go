// Package drivers allocates synapse drivers to incoming vertical lines.
//
// # Slots and Intervals
//
// Each side of a chip has two quadrants of [hicann.DriversPerQuadrant]
// driver slots. A line feeds one primary driver directly; neighbouring free
// drivers can be chained to the primary to form a [ConnectedDrivers]
// interval. An [Assignment] tracks which slots are free, defect, or taken
// and places intervals with [Assignment.Add].
//
// # Snug Fit
//
// For every free candidate driver of the line (in [hicann.Geometry] order)
// Add measures the free gap around it and picks the smallest gap that still
// holds the requested count. If no gap is large enough, the largest gap is
// used and the route is clipped. Add never partially mutates: when no
// candidate is free it returns false and leaves every slot untouched.
//
//	a := drivers.NewAssignment(hicann.Left, nil)
//	r := drivers.NewRoute(hicann.VLine(3), 4, 120)
//	if !a.Add(&r) {
//	    // no free driver reachable from line 3
//	}
//
// # Planning a Side
//
// [Plan] handles all requests of one side at once. When more drivers are
// requested than available it scales requests by their synapse share
// before placing them largest first, and reports lines that could not be
// placed at all.
package drivers
