package fields

// State bundles the owned field slabs of one patch (spec.md S3): E and B
// on staggered (Yee) locations, J and rho on the primal grid.
type State struct {
	E [3]*Slab
	B [3]*Slab
	J [3]*Slab
	Rho *Slab
}

// NewState allocates every component slab with the same interior extent
// and ghost thickness. Real Yee staggering offsets components by half a
// cell; that offset is a coordinate-interpretation concern for the
// solver plug-in (spec.md S1 Out of scope), not a storage-layout one, so
// every component shares one Slab shape here.
func NewState(dims, ghost []int) *State {
	st := &State{Rho: NewSlab(dims, ghost)}
	for c := 0; c < 3; c++ {
		st.E[c] = NewSlab(dims, ghost)
		st.B[c] = NewSlab(dims, ghost)
		st.J[c] = NewSlab(dims, ghost)
	}
	return st
}

// ResetCurrents zeros J and rho before a step's deposition pass.
func (st *State) ResetCurrents() {
	for c := 0; c < 3; c++ {
		st.J[c].Reset()
	}
	st.Rho.Reset()
}

// FieldEnergy computes the sum over owned interior cells of
// (E^2 + B^2)/2 in code units — used by property tests (spec.md S8
// energy-conservation checks) and by run_all_diags.
func (st *State) FieldEnergy() float64 {
	var e float64
	for c := 0; c < 3; c++ {
		e += sumSquaredInterior(st.E[c])
		e += sumSquaredInterior(st.B[c])
	}
	return 0.5 * e
}

func sumSquaredInterior(s *Slab) float64 {
	nd := len(s.Dims)
	los := make([]int, nd)
	his := make([]int, nd)
	for i := 0; i < nd; i++ {
		los[i] = s.InteriorLo(i)
		his[i] = s.InteriorHi(i)
	}
	var sum float64
	coord := make([]int, nd)
	var rec func(d int)
	rec = func(d int) {
		if d == nd {
			v := s.At(coord...)
			sum += v * v
			return
		}
		for c := los[d]; c < his[d]; c++ {
			coord[d] = c
			rec(d + 1)
		}
	}
	rec(0)
	return sum
}

// TotalCharge sums rho over owned interior cells (spec.md S8 "charge
// conservation" property).
func (st *State) TotalCharge() float64 {
	nd := len(st.Rho.Dims)
	los := make([]int, nd)
	his := make([]int, nd)
	for i := 0; i < nd; i++ {
		los[i] = st.Rho.InteriorLo(i)
		his[i] = st.Rho.InteriorHi(i)
	}
	var sum float64
	coord := make([]int, nd)
	var rec func(d int)
	rec = func(d int) {
		if d == nd {
			sum += st.Rho.At(coord...)
			return
		}
		for c := los[d]; c < his[d]; c++ {
			coord[d] = c
			rec(d + 1)
		}
	}
	rec(0)
	return sum
}
