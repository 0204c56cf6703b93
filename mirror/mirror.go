// Package mirror implements the Cartesian Mirror Domain (C5) of spec.md
// S4.5: reassembling a process's owned patch field slabs into one
// contiguous block, running the plug-in Maxwell solver over it, and
// scattering the result back.
package mirror

import (
	"sort"

	"github.com/notargets/pic/decomp"
	"github.com/notargets/pic/patch"
	"github.com/notargets/pic/solver"
)

// Tile is the deterministic rectangular-partition assignment spec.md S9
// requires ("find the smallest axis-aligned rectangle of patch indices
// containing its owned run") in place of the source's hard-coded
// scaffolding arrays.
type Tile struct {
	Rank int
	// Lo/Hi are the inclusive/exclusive bounds, per axis, of the smallest
	// axis-aligned rectangle in patch-grid coordinates containing every
	// patch this rank owns.
	Lo, Hi []int
	// Additional are owned patches outside Lo/Hi's rectangle — must be
	// relinquished to the peer that will hold them once tiles are
	// reconciled.
	Additional []int
	// Missing are patches inside Lo/Hi not owned by this rank — must be
	// acquired from their current owner.
	Missing []int
}

// Domain is one process's Cartesian Mirror Domain: the assembled block
// plus the coverage-protocol bookkeeping for its rank.
type Domain struct {
	Rank       int
	Dims       []int // patch-grid dimensions
	Decomp     *decomp.Decomposition
	Maxwell    solver.MaxwellSolver
	tile       Tile
	built      bool
}

func New(rank int, dims []int, d *decomp.Decomposition, mx solver.MaxwellSolver) *Domain {
	return &Domain{Rank: rank, Dims: dims, Decomp: d, Maxwell: mx}
}

// RebuildTile recomputes the rectangular-tile assignment from the current
// patch_count[] (spec.md S4.5 "chosen before the time loop starts and is
// stable unless a load-balance event triggers recomputation"; S9's
// deterministic-derivation design note).
func (dom *Domain) RebuildTile() {
	lo, hi := dom.boundingRectangle(dom.Rank)
	owned := map[int]bool{}
	min, max := dom.Decomp.Range(dom.Rank)
	for p := min; p < max; p++ {
		owned[p] = true
	}

	var additional, missing []int
	inRect := func(p int) bool {
		coord := dom.Decomp.Curve.Decode(p)
		for a := range coord {
			if coord[a] < lo[a] || coord[a] >= hi[a] {
				return false
			}
		}
		return true
	}
	for p := range owned {
		if !inRect(p) {
			additional = append(additional, p)
		}
	}
	rectCount := 1
	for a := range lo {
		rectCount *= hi[a] - lo[a]
	}
	// Walk every patch index in the rectangle by decoding each coordinate
	// combination; NPatches bounds the search since Decode/Encode are a
	// bijection over [0, NPatches).
	for p := 0; p < dom.Decomp.NPatches; p++ {
		if !owned[p] && inRect(p) {
			missing = append(missing, p)
		}
	}
	sort.Ints(additional)
	sort.Ints(missing)
	dom.tile = Tile{Rank: dom.Rank, Lo: lo, Hi: hi, Additional: additional, Missing: missing}
	dom.built = true
}

// boundingRectangle finds the smallest axis-aligned rectangle of
// patch-grid coordinates containing every patch rank owns.
func (dom *Domain) boundingRectangle(rank int) (lo, hi []int) {
	nd := len(dom.Dims)
	lo = make([]int, nd)
	hi = make([]int, nd)
	for a := range lo {
		lo[a] = dom.Dims[a]
		hi[a] = 0
	}
	min, max := dom.Decomp.Range(rank)
	if min >= max {
		for a := range lo {
			lo[a], hi[a] = 0, 0
		}
		return
	}
	for p := min; p < max; p++ {
		coord := dom.Decomp.Curve.Decode(p)
		for a := 0; a < nd; a++ {
			if coord[a] < lo[a] {
				lo[a] = coord[a]
			}
			if coord[a]+1 > hi[a] {
				hi[a] = coord[a] + 1
			}
		}
	}
	return
}

// CurrentTile exposes the current rectangular assignment (Additional/Missing
// patches this rank must exchange with peers before the gather phase).
func (dom *Domain) CurrentTile() Tile { return dom.tile }

// ShouldSolve implements the frozen-field optimization: skip the Maxwell
// solve entirely while t is before time_fields_frozen (spec.md S4.5).
func ShouldSolve(t, timeFieldsFrozen float64) bool { return t >= timeFieldsFrozen }

// Block is the contiguous per-component field block assembled by
// PatchedToCartesian, addressed the same flat-array way fields.Slab is.
type Block struct {
	Dims    []int
	E, B, J [3][]float64
	Rho     []float64
}

// PatchedToCartesian gathers every patch this rank owns whose grid
// coordinate falls in the rank's rectangular tile into one contiguous
// block (spec.md S4.5 patchedToCartesian). Patches are assumed to already
// be reconciled against Additional/Missing before this call.
func PatchedToCartesian(dom *Domain, patches []*patch.Patch, cellsPerPatch []int) *Block {
	nd := len(dom.tile.Lo)
	blockDims := make([]int, nd)
	for a := 0; a < nd; a++ {
		blockDims[a] = (dom.tile.Hi[a] - dom.tile.Lo[a]) * cellsPerPatch[a]
	}
	total := 1
	for _, d := range blockDims {
		total *= d
	}
	blk := &Block{Dims: blockDims}
	for c := 0; c < 3; c++ {
		blk.E[c] = make([]float64, total)
		blk.B[c] = make([]float64, total)
		blk.J[c] = make([]float64, total)
	}
	blk.Rho = make([]float64, total)
	for _, p := range patches {
		copyPatchIntoBlock(dom, blk, p, cellsPerPatch)
	}
	return blk
}

func copyPatchIntoBlock(dom *Domain, blk *Block, p *patch.Patch, cellsPerPatch []int) {
	nd := len(dom.tile.Lo)
	base := make([]int, nd)
	for a := 0; a < nd && a < len(p.PatchCoord); a++ {
		base[a] = (p.PatchCoord[a] - dom.tile.Lo[a]) * cellsPerPatch[a]
	}
	for c := 0; c < 3; c++ {
		copyInterior(blk.Dims, base, blk.E[c], p.Fields.E[c])
		copyInterior(blk.Dims, base, blk.B[c], p.Fields.B[c])
		copyInterior(blk.Dims, base, blk.J[c], p.Fields.J[c])
	}
	copyInterior(blk.Dims, base, blk.Rho, p.Fields.Rho)
}

// slabReader is the minimal read surface copyInterior needs, satisfied
// by *fields.Slab.
type slabReader interface {
	At(coord ...int) float64
	InteriorLo(axis int) int
	InteriorHi(axis int) int
}

func copyInterior(blockDims, base []int, dst []float64, src slabReader) {
	nd := len(blockDims)
	los := make([]int, nd)
	his := make([]int, nd)
	for a := 0; a < nd; a++ {
		los[a] = src.InteriorLo(a)
		his[a] = src.InteriorHi(a)
	}
	strides := make([]int, nd)
	stride := 1
	for a := nd - 1; a >= 0; a-- {
		strides[a] = stride
		stride *= blockDims[a]
	}
	coord := make([]int, nd)
	var rec func(a int)
	rec = func(a int) {
		if a == nd {
			idx := 0
			for i := 0; i < nd; i++ {
				idx += (base[i] + coord[i] - los[i]) * strides[i]
			}
			dst[idx] = src.At(coord...)
			return
		}
		for c := los[a]; c < his[a]; c++ {
			coord[a] = c
			rec(a + 1)
		}
	}
	rec(0)
}

// CartesianToPatches scatters a solved block's E/B back into each
// patch's owned interior (spec.md S4.5 cartesianToPatches).
func CartesianToPatches(dom *Domain, patches []*patch.Patch, cellsPerPatch []int, blk *Block) {
	for _, p := range patches {
		nd := len(dom.tile.Lo)
		base := make([]int, nd)
		for a := 0; a < nd && a < len(p.PatchCoord); a++ {
			base[a] = (p.PatchCoord[a] - dom.tile.Lo[a]) * cellsPerPatch[a]
		}
		for c := 0; c < 3; c++ {
			scatterInterior(blk.Dims, base, blk.E[c], p.Fields.E[c])
			scatterInterior(blk.Dims, base, blk.B[c], p.Fields.B[c])
		}
	}
}

type slabWriter interface {
	Set(v float64, coord ...int)
	InteriorLo(axis int) int
	InteriorHi(axis int) int
}

func scatterInterior(blockDims, base []int, src []float64, dst slabWriter) {
	nd := len(blockDims)
	los := make([]int, nd)
	his := make([]int, nd)
	for a := 0; a < nd; a++ {
		los[a] = dst.InteriorLo(a)
		his[a] = dst.InteriorHi(a)
	}
	strides := make([]int, nd)
	stride := 1
	for a := nd - 1; a >= 0; a-- {
		strides[a] = stride
		stride *= blockDims[a]
	}
	coord := make([]int, nd)
	var rec func(a int)
	rec = func(a int) {
		if a == nd {
			idx := 0
			for i := 0; i < nd; i++ {
				idx += (base[i] + coord[i] - los[i]) * strides[i]
			}
			dst.Set(src[idx], coord...)
			return
		}
		for c := los[a]; c < his[a]; c++ {
			coord[a] = c
			rec(a + 1)
		}
	}
	rec(0)
}

// SolveMaxwell runs the plug-in Maxwell solver over the assembled block
// in place (spec.md S4.5 solveMaxwell hook), unless the frozen-field
// optimization applies. The block carries no ghost padding of its own —
// it is the process's full contiguous rectangle — so the solver is given
// zero ghost thickness and its curl stencils apply to the whole block;
// the neighboring-process boundary is resolved by the ghost exchange
// that runs on the per-patch slabs before and after the mirror-domain
// round trip, not inside it.
func (dom *Domain) SolveMaxwell(blk *Block, cellSize [3]float64, dt, t, timeFieldsFrozen float64) {
	if !ShouldSolve(t, timeFieldsFrozen) {
		return
	}
	g := solver.Grid{CellSize: cellSize, NDim: len(blk.Dims)}
	zeroGhost := make([]int, len(blk.Dims))
	dom.Maxwell.Advance(g, blk.Dims, zeroGhost, dt, blk.E, blk.B, blk.J)
}
