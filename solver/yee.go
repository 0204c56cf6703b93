package solver

// YeeSolver is the default MaxwellSolver: the standard FDTD leapfrog
// curl-update on the Yee-staggered grid (spec.md S1 Out of scope lists
// "the numeric field solver stencils themselves (Yee, Maxwell-Ampère,
// PSATD variants)" as a plug-in surface; this is the minimal one the
// engine ships so C5/C9 are runnable end to end, swappable per spec.md
// S9's single-explicit-configuration-switch redesign flag). E and B,
// and the dims/ghost describing their shared local grid shape, are
// passed as the flat backing arrays fields.Slab.Data() exposes, so this
// package never imports fields.
type YeeSolver struct {
	Clight float64 // c, in the deck's unit system; 1 if zero
}

func (y YeeSolver) Advance(g Grid, dims []int, ghost []int, dt float64, E, B, J [3][]float64) {
	c := y.Clight
	if c == 0 {
		c = 1
	}
	nd := len(dims)
	full := make([]int, nd)
	strides := make([]int, nd)
	stride := 1
	for i := nd - 1; i >= 0; i-- {
		full[i] = dims[i] + 2*ghost[i]
		strides[i] = stride
		stride *= full[i]
	}

	// Advance B by dt/2 using curl(E), then E by dt using curl(B) - J,
	// then B by dt/2 again: the standard Yee leapfrog half-step
	// ordering.
	y.advanceB(nd, full, strides, ghost, g.CellSize, dt/2, c, E, B)
	y.advanceE(nd, full, strides, ghost, g.CellSize, dt, c, E, B, J)
	y.advanceB(nd, full, strides, ghost, g.CellSize, dt/2, c, E, B)
}

func (y YeeSolver) advanceB(nd int, full, strides, ghost []int, cellSize [3]float64, dt, c float64, E, B [3][]float64) {
	walkInterior(nd, full, ghost, func(idx int, coord []int) {
		// dB/dt = -curl(E); central differences against the +1 neighbor
		// on each axis (forward difference matches the dual-grid B
		// offset relative to primal E).
		for comp := 0; comp < 3; comp++ {
			a, b := axisPair(comp)
			if nd <= a || nd <= b {
				continue
			}
			dEb := (E[b][idx+strides[a]] - E[b][idx]) / safeCell(cellSize[a])
			dEa := (E[a][idx+strides[b]] - E[a][idx]) / safeCell(cellSize[b])
			B[comp][idx] -= dt * c * (dEb - dEa)
		}
	})
}

func (y YeeSolver) advanceE(nd int, full, strides, ghost []int, cellSize [3]float64, dt, c float64, E, B, J [3][]float64) {
	walkInterior(nd, full, ghost, func(idx int, coord []int) {
		for comp := 0; comp < 3; comp++ {
			a, b := axisPair(comp)
			if nd <= a || nd <= b {
				continue
			}
			dBb := (B[b][idx] - B[b][idx-strides[a]]) / safeCell(cellSize[a])
			dBa := (B[a][idx] - B[a][idx-strides[b]]) / safeCell(cellSize[b])
			E[comp][idx] += dt * (c * (dBb - dBa) - J[comp][idx])
		}
	})
}

// axisPair returns the two axes whose E/B cross-derivatives feed
// curl-component comp (x curl uses y,z; y curl uses z,x; z curl uses
// x,y).
func axisPair(comp int) (a, b int) {
	switch comp {
	case 0:
		return 1, 2
	case 1:
		return 2, 0
	default:
		return 0, 1
	}
}

func safeCell(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func walkInterior(nd int, full, ghost []int, fn func(idx int, coord []int)) {
	strides := make([]int, nd)
	stride := 1
	for i := nd - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= full[i]
	}
	coord := make([]int, nd)
	var rec func(d, idx int)
	rec = func(d, idx int) {
		if d == nd {
			fn(idx, coord)
			return
		}
		// A one-cell margin is always reserved regardless of ghost[d] so
		// the curl stencil's neighbor lookups (idx +/- strides) never
		// index outside the backing array, even when the caller (the
		// mirror domain's assembled block) passes zero ghost.
		margin := ghost[d]
		if margin < 1 {
			margin = 1
		}
		lo, hi := margin, full[d]-margin
		for c := lo; c < hi; c++ {
			coord[d] = c
			rec(d+1, idx+c*strides[d])
		}
	}
	rec(0, 0)
}
