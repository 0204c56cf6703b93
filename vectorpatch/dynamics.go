package vectorpatch

import (
	"strconv"

	"github.com/notargets/pic/comm"
	"github.com/notargets/pic/patch"
)

// Dynamics runs spec.md S4.1's per-particle pipeline (interpolate, push,
// deposit) for every species on every owned patch, capturing each
// particle's pre-push position so Deposit can trace its exact
// sub-step trajectory (spec.md S4.1 deposit "the particle's actual
// trajectory this step, not just its endpoints").
func (vp *VectorPatch) Dynamics(dt float64) {
	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		for si, c := range p.Species {
			old := make([][3]float64, len(c.P))
			for i, part := range c.P {
				old[i] = part.Position
			}
			p.Push(si, dt)
			p.Deposit(si, dt, old)
		}
	}
}

// FinalizeAndSortParts is spec.md S4.4's finalize_and_sort_parts: resolve
// every particle a Push queued into Leaving, either directly into a
// same-rank neighbor's container or across processes via pack/unpack,
// then re-sort each surviving container by local cell for locality.
func (vp *VectorPatch) FinalizeAndSortParts(cellOf func(p *patch.Patch, pos [3]float64) int) error {
	if err := vp.migrateParticles(); err != nil {
		return err
	}
	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		for _, c := range p.Species {
			c.SortByCell(func(pos [3]float64) int { return cellOf(p, pos) })
		}
	}
	return nil
}

// wrapOffset returns the position correction a particle leaving patch
// gi's (axis,side) face needs before delivery, when that face is the
// global periodic boundary: the periodic policy's "position wrapped
// into the global domain" (spec.md S4.2) applies at the patch level,
// not just inside ApplyBoundary's own-patch case, since FaceNeighbor
// wraps the destination patch index without touching the particle's
// coordinate.
func (vp *VectorPatch) wrapOffset(gi, axis, side int) float64 {
	if !vp.isPeriodic(axis) || !vp.Decomp.IsGlobalBoundary(gi, axis, side) {
		return 0
	}
	extent := float64(vp.Deck.NSpaceGlobal[axis]) * vp.Deck.CellLength[axis]
	if side == 0 {
		return extent
	}
	return -extent
}

func (vp *VectorPatch) migrateParticles() error {
	nd := len(vp.PatchGridDims)
	nSpecies := len(vp.Deck.Species)
	me := vp.Transport.Rank()

	for si := 0; si < nSpecies; si++ {
		for _, gi := range vp.ordered() {
			p := vp.Owned[gi]
			for axis := 0; axis < nd; axis++ {
				periodic := vp.isPeriodic(axis)
				for side := 0; side < 2; side++ {
					neighbor, ok := vp.Decomp.FaceNeighbor(gi, axis, side, periodic)
					if !ok {
						continue // resolved on-patch by ApplyBoundary against the global face
					}
					if off := vp.wrapOffset(gi, axis, side); off != 0 {
						for i := range p.Leaving[si][axis][side] {
							p.Leaving[si][axis][side][i].P.Position[axis] += off
						}
					}
					ownerRank := vp.Decomp.OwnerOf(neighbor)
					if comm.Rank(ownerRank) == me {
						if np, ok := vp.Owned[neighbor]; ok {
							for _, lp := range p.Leaving[si][axis][side] {
								np.Species[si].Add(lp.P)
							}
						}
						p.Leaving[si][axis][side] = nil
						continue
					}
					buf, err := p.Pack(si, axis, side)
					if err != nil {
						return err
					}
					vp.Transport.Send(comm.Rank(ownerRank), particleTag(neighbor, si, axis, 1-side), buf)
				}
			}
		}
	}
	vp.Transport.Flush()
	if err := vp.Transport.Barrier(); err != nil {
		return err
	}
	for si := 0; si < nSpecies; si++ {
		for _, gi := range vp.ordered() {
			np := vp.Owned[gi]
			for axis := 0; axis < nd; axis++ {
				for side := 0; side < 2; side++ {
					for _, raw := range vp.Transport.Recv(particleTag(gi, si, axis, side)) {
						if err := np.Unpack(si, raw); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

func particleTag(globalIndex, speciesIdx, axis, side int) string {
	return "particles:" + strconv.Itoa(globalIndex) + ":" + strconv.Itoa(speciesIdx) + ":" + strconv.Itoa(axis) + ":" + strconv.Itoa(side)
}

// cellOfPatch is the default CellIndexer FinalizeAndSortParts uses when
// the caller has no species-specific locality scheme: flatten the
// particle's owning cell coordinate within p's local (non-ghost) grid.
func cellOfPatch(p *patch.Patch, pos [3]float64) int {
	idx := 0
	stride := 1
	for a := 0; a < p.NDimField; a++ {
		c := int((pos[a] - p.Origin[a]) / p.CellSize[a])
		if c < 0 {
			c = 0
		}
		idx += c * stride
		stride *= p.Fields.Rho.Dims[a]
	}
	return idx
}

// FinalizeAndSortPartsDefault is the convenience entry point Dynamics'
// caller uses when no custom locality scheme is configured.
func (vp *VectorPatch) FinalizeAndSortPartsDefault() error {
	return vp.FinalizeAndSortParts(cellOfPatch)
}
