// Package fields implements the per-patch field slabs of spec.md S3: E
// and B on staggered (Yee) locations, J and rho on the primal grid, each
// with a ghost layer used only for reads (spec.md's ownership
// invariant). Storage is a flat []float64 with computed strides, the
// same column-major flat-array-plus-index-arithmetic style gocfd's
// utils.Matrix uses (`ind := k + i*Kmax`) rather than a slice-of-slices.
package fields

import "fmt"

// Slab is one scalar field component over a patch's local grid,
// including its ghost layer. Dims is the interior extent per axis;
// Ghost is the ghost thickness per axis (spec.md S3 "ghost thickness g
// per axis"). The full stored extent per axis is Dims[i] + 2*Ghost[i].
type Slab struct {
	Dims    []int
	Ghost   []int
	strides []int
	data    []float64
}

func NewSlab(dims, ghost []int) *Slab {
	if len(dims) != len(ghost) {
		panic("fields: dims and ghost must have equal length")
	}
	full := make([]int, len(dims))
	for i := range dims {
		full[i] = dims[i] + 2*ghost[i]
	}
	strides := make([]int, len(dims))
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= full[i]
	}
	return &Slab{
		Dims:    append([]int(nil), dims...),
		Ghost:   append([]int(nil), ghost...),
		strides: strides,
		data:    make([]float64, stride),
	}
}

// Data exposes the flat backing array (owner cells and ghost cells
// together), for bulk operations like the Maxwell solver's mirror-domain
// gather/scatter.
func (s *Slab) Data() []float64 { return s.data }

// full returns the total extent along axis, interior + both ghost bands.
func (s *Slab) full(axis int) int { return s.Dims[axis] + 2*s.Ghost[axis] }

// index converts a local coordinate — where 0 is the first ghost cell,
// Ghost[axis] is the first interior cell — into a flat offset.
func (s *Slab) index(coord []int) int {
	idx := 0
	for i, c := range coord {
		if c < 0 || c >= s.full(i) {
			panic(fmt.Sprintf("fields: coordinate %v out of bounds on axis %d (full=%d)", coord, i, s.full(i)))
		}
		idx += c * s.strides[i]
	}
	return idx
}

func (s *Slab) At(coord ...int) float64      { return s.data[s.index(coord)] }
func (s *Slab) Set(v float64, coord ...int)  { s.data[s.index(coord)] = v }
func (s *Slab) Add(v float64, coord ...int)  { s.data[s.index(coord)] += v }

// InteriorLo/InteriorHi give the local-coordinate bounds of the owned
// (non-ghost) interior along axis: [InteriorLo, InteriorHi).
func (s *Slab) InteriorLo(axis int) int { return s.Ghost[axis] }
func (s *Slab) InteriorHi(axis int) int { return s.Ghost[axis] + s.Dims[axis] }

// FaceSlab extracts the boundary band of thickness Ghost[axis] on the
// owner side of (axis, side) — the data a neighbor's ghost exchange
// receive will consume (spec.md S4.4 ghost-exchange protocol).
func (s *Slab) FaceSlab(axis, side int) []float64 {
	lo, hi := s.faceBand(axis, side, true)
	return s.extract(axis, lo, hi)
}

// GhostSlab extracts this patch's own ghost band on (axis, side), used
// when packing periodic-wrap or diagnostic reads.
func (s *Slab) GhostSlab(axis, side int) []float64 {
	lo, hi := s.faceBand(axis, side, false)
	return s.extract(axis, lo, hi)
}

// faceBand returns the [lo,hi) local-coordinate band on axis for the
// owner interior boundary (owner=true) or the ghost band (owner=false)
// on the given side.
func (s *Slab) faceBand(axis, side int, owner bool) (lo, hi int) {
	g := s.Ghost[axis]
	switch {
	case owner && side == 0:
		lo, hi = s.InteriorLo(axis), s.InteriorLo(axis)+g
	case owner && side == 1:
		lo, hi = s.InteriorHi(axis)-g, s.InteriorHi(axis)
	case !owner && side == 0:
		lo, hi = 0, g
	default: // !owner && side == 1
		lo, hi = s.full(axis)-g, s.full(axis)
	}
	return
}

// extract walks every coordinate whose axis component lies in [lo,hi)
// and every other axis spans its full stored extent, in row-major order
// over the non-axis dimensions.
func (s *Slab) extract(axis, lo, hi int) []float64 {
	var out []float64
	s.walk(axis, lo, hi, func(coord []int) {
		out = append(out, s.At(coord...))
	})
	return out
}

// SetGhostBand overwrites (E,B semantics: "receiver assigns", spec.md
// S4.4) the ghost band on (axis, side) from buf, in the same order
// extract produced it.
func (s *Slab) SetGhostBand(axis, side int, buf []float64) {
	lo, hi := s.faceBand(axis, side, false)
	i := 0
	s.walk(axis, lo, hi, func(coord []int) {
		s.Set(buf[i], coord...)
		i++
	})
}

// AddGhostBand accumulates (J,rho semantics: "receiver adds", spec.md
// S4.4) into the ghost band on (axis, side) from buf.
func (s *Slab) AddGhostBand(axis, side int, buf []float64) {
	lo, hi := s.faceBand(axis, side, false)
	i := 0
	s.walk(axis, lo, hi, func(coord []int) {
		s.Add(buf[i], coord...)
		i++
	})
}

// walk enumerates every coordinate with axis component in [lo,hi) and
// every other axis spanning its full stored extent.
func (s *Slab) walk(axis, lo, hi int, fn func(coord []int)) {
	nd := len(s.Dims)
	coord := make([]int, nd)
	var rec func(d int)
	rec = func(d int) {
		if d == nd {
			fn(coord)
			return
		}
		if d == axis {
			for c := lo; c < hi; c++ {
				coord[d] = c
				rec(d + 1)
			}
			return
		}
		for c := 0; c < s.full(d); c++ {
			coord[d] = c
			rec(d + 1)
		}
	}
	rec(0)
}

// Reset zeros the whole slab, used before recomputing J/rho each step
// (spec.md S4.4 compute_charge/sum_densities operate on freshly
// deposited densities).
func (s *Slab) Reset() {
	for i := range s.data {
		s.data[i] = 0
	}
}
