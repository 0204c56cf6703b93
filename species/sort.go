package species

import "sort"

// CellIndexer maps a particle position to a local flat cell index, so
// SortByCell can restore the cache-local ordering spec.md S4.4's
// finalize_and_sort_parts performs after particle migration.
type CellIndexer func(pos [3]float64) int

// SortByCell re-sorts the container's particles by local cell index in
// place. Go's sort.SliceStable on an index permutation followed by a single
// reorder pass keeps this an O(N log N) stable operation without a
// custom radix sort, matching the complexity gocfd accepts for its own
// per-step reshuffle (ShardByK's copy-based reshuffle, not an in-place
// one, is the same complexity class).
func (c *Container) SortByCell(cellOf CellIndexer) {
	n := len(c.P)
	if n == 0 {
		return
	}
	idx := make([]int, n)
	keys := make([]int, n)
	for i, p := range c.P {
		idx[i] = i
		keys[i] = cellOf(p.Position)
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
	sorted := make([]Particle, n)
	for i, j := range idx {
		sorted[i] = c.P[j]
	}
	c.P = sorted
}

// InjectionProfile supplies newly created particles at the moving
// window's leading edge (spec.md S4.6c). It is a plug-in per SPEC_FULL's
// DOMAIN STACK note (the particle-side analogue of the laser/antenna
// source-profile contract spec.md S1 lists as out of scope).
type InjectionProfile interface {
	// Inject appends particles for one newly created patch's local
	// volume into dst, at the given global coordinate origin and cell
	// size.
	Inject(dst *Container, origin [3]float64, cellSize [3]float64, extent [3]int)
}

// UniformDensity is the default InjectionProfile: one macro-particle per
// cell at density n0, zero drift momentum, placed at the cell center.
type UniformDensity struct {
	N0     float64
	Weight float64
}

func (u UniformDensity) Inject(dst *Container, origin, cellSize [3]float64, extent [3]int) {
	for i := 0; i < extent[0]; i++ {
		for j := 0; j < maxInt(extent[1], 1); j++ {
			for k := 0; k < maxInt(extent[2], 1); k++ {
				pos := [3]float64{
					origin[0] + (float64(i)+0.5)*cellSize[0],
					origin[1] + (float64(j)+0.5)*cellSize[1],
					origin[2] + (float64(k)+0.5)*cellSize[2],
				}
				dst.Add(Particle{Position: pos, Weight: u.Weight * u.N0})
			}
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
