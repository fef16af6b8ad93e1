// Package synapse turns the synapse drivers allocated to a vertical line
// into concrete synapse rows and synapses.
//
// A [Manager] is built from the driver intervals of [drivers.Assignment].
// [Manager.Init] receives two histograms per line, required half-rows and
// represented synapses per hardware property [Key], and splits the line's
// drivers in a cascade of [reduce.Reduce] calls: across STP modes, then
// input sides, then decoders. The result is an [Assignment] from key to
// half-rows that configuration code reads to program the drivers.
//
// Synapses are then handed out through [SynapsesOnVLine] and [Stepper].
// Every synapse is returned at most once; a line's view can only be
// requested once.
package synapse
