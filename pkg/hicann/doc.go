// Package hicann defines the coordinates of a HICANN chip that the router
// and the resource allocators work on: bus orientation, chip position,
// synapse drivers and rows, columns, and the per-row hardware properties
// (parity, decoder, short-term plasticity).
//
// It also defines [Geometry], the oracle that tells which synapse drivers a
// vertical line reaches. Allocation code asks the oracle for candidates and
// never hard-codes the wiring of a particular chip revision.
package hicann
