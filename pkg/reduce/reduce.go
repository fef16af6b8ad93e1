// Package reduce distributes a scarce integer budget across keyed
// requirements in proportion to their priorities.
//
// It is the building block of the synapse resource cascade: drivers are
// split across STP modes, rows across input sides, and half-rows across
// decoders, each time with [Reduce] weighted by the number of synapses a key
// represents.
package reduce

import (
	"cmp"
	"math"
	"slices"
)

// Reduce distributes available units across the keys of required.
//
// If the requirements fit, a copy of required is returned. Otherwise every
// key with a positive requirement first gets max(1, floor(rel)) where rel is
// its share of available by priority, and the surplus or deficit is then
// corrected one unit per key and pass. Surplus is removed in descending
// order of assigned minus ideal share, deficit is filled in ascending order
// of that delta; equal deltas are visited in ascending key order. While any
// key holds more than one unit, no key is reduced to zero, so every key
// keeps at least one unit whenever available covers all keys.
//
// Once the budget is insufficient the required counts no longer bound the
// result: a key can end up with more units than it asked for.
func Reduce[K cmp.Ordered](required, priority map[K]int, available int) map[K]int {
	return ReduceFunc(required, priority, available, cmp.Compare[K])
}

// ReduceFunc is [Reduce] for keys ordered by compare.
func ReduceFunc[K comparable](required, priority map[K]int, available int, compare func(a, b K) int) map[K]int {
	keys := make([]K, 0, len(required))
	requiredTotal := 0
	for k, n := range required {
		keys = append(keys, k)
		requiredTotal += n
	}
	slices.SortFunc(keys, compare)

	out := make(map[K]int, len(required))
	if requiredTotal <= available {
		for k, n := range required {
			out[k] = n
		}
		return out
	}

	priorityTotal := 0
	for _, p := range priority {
		priorityTotal += p
	}

	type entry struct {
		key   K
		delta float64
	}
	var over, under []entry
	var active []K
	assigned := 0

	for _, k := range keys {
		if required[k] <= 0 {
			out[k] = 0
			continue
		}
		rel := 0.0
		if priorityTotal > 0 {
			rel = float64(priority[k]) / float64(priorityTotal) * float64(available)
		}
		t := max(1, int(math.Floor(rel)))
		out[k] = t
		assigned += t
		active = append(active, k)

		if delta := float64(t) - rel; delta > 0 {
			over = append(over, entry{k, delta})
		} else {
			under = append(under, entry{k, delta})
		}
	}

	// Keys are already in ascending order, so a stable sort keeps the
	// key tie-break.
	slices.SortStableFunc(over, func(a, b entry) int { return cmp.Compare(b.delta, a.delta) })
	slices.SortStableFunc(under, func(a, b entry) int { return cmp.Compare(a.delta, b.delta) })

	// Surplus comes off in descending delta across all keys. A key only
	// drops to zero once every key is down to a single unit.
	all := append(append([]entry(nil), over...), under...)
	slices.SortStableFunc(all, func(a, b entry) int { return cmp.Compare(b.delta, a.delta) })
	decr := make([]K, len(all))
	for i, e := range all {
		decr[i] = e.key
	}
	for floor := 1; assigned > available && floor >= 0; {
		changed := false
		for _, k := range decr {
			if assigned == available {
				break
			}
			if out[k] > floor {
				out[k]--
				assigned--
				changed = true
			}
		}
		if !changed {
			floor--
		}
	}

	incr := make([]K, 0, len(active))
	for _, e := range under {
		incr = append(incr, e.key)
	}
	if len(incr) == 0 {
		incr = active
	}
	for assigned < available {
		for _, k := range incr {
			out[k]++
			assigned++
			if assigned == available {
				break
			}
		}
	}

	return out
}

// Sum returns the total of all values in m.
func Sum[K comparable](m map[K]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
