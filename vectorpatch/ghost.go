package vectorpatch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/notargets/pic/comm"
	"github.com/notargets/pic/fields"
	"github.com/notargets/pic/patch"
)

// slabGroup names the set of per-axis slabs one ghost-exchange pass
// moves together, so J's 3 components and rho exchange as one group and
// E/B's 6 components exchange as another (spec.md S4.4 "Completion
// ordered by axis to keep diagonal ghosts consistent").
type slabGroup func(p *patch.Patch) []*fields.Slab

func currentGroup(p *patch.Patch) []*fields.Slab {
	return []*fields.Slab{p.Fields.J[0], p.Fields.J[1], p.Fields.J[2], p.Fields.Rho}
}

func emGroup(p *patch.Patch) []*fields.Slab {
	return []*fields.Slab{p.Fields.E[0], p.Fields.E[1], p.Fields.E[2], p.Fields.B[0], p.Fields.B[1], p.Fields.B[2]}
}

// exchangeGhosts runs one ghost-exchange pass for group, additive for
// J/rho (spec.md S4.4 "receiver adds") or overwrite for E/B ("receiver
// assigns"), axis by axis so diagonal corners see consistent state by
// the time axis+1 runs (spec.md S4.4 completion ordering).
func (vp *VectorPatch) exchangeGhosts(group slabGroup, additive bool) error {
	nd := len(vp.PatchGridDims)
	for axis := 0; axis < nd; axis++ {
		if err := vp.exchangeAxis(group, axis, additive); err != nil {
			return err
		}
	}
	return nil
}

func (vp *VectorPatch) exchangeAxis(group slabGroup, axis int, additive bool) error {
	me := vp.Transport.Rank()
	periodic := vp.isPeriodic(axis)

	type pending struct {
		gi, side int
	}
	var remoteRecvs []pending

	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		for side := 0; side < 2; side++ {
			neighbor, ok := vp.Decomp.FaceNeighbor(gi, axis, side, periodic)
			if !ok {
				continue // global boundary: handled by field/particle BCs, not ghost exchange
			}
			ownerRank := vp.Decomp.OwnerOf(neighbor)
			buf := packFaces(group(p), axis, side)
			destSide := 1 - side
			if comm.Rank(ownerRank) == me {
				if np, ok := vp.Owned[neighbor]; ok {
					applyGhost(group(np), axis, destSide, buf, additive)
				}
				continue
			}
			vp.Transport.Send(comm.Rank(ownerRank), ghostTag(neighbor, axis, destSide), encodeFloats(buf))
			remoteRecvs = append(remoteRecvs, pending{gi: neighbor, side: destSide})
		}
	}
	vp.Transport.Flush()
	if err := vp.Transport.Barrier(); err != nil {
		return err
	}
	for _, r := range remoteRecvs {
		np, ok := vp.Owned[r.gi]
		if !ok {
			continue
		}
		for _, raw := range vp.Transport.Recv(ghostTag(r.gi, axis, r.side)) {
			buf, err := decodeFloats(raw)
			if err != nil {
				return err
			}
			applyGhost(group(np), axis, r.side, buf, additive)
		}
	}
	return nil
}

func ghostTag(globalIndex, axis, side int) string {
	return fmt.Sprintf("ghost:%d:%d:%d", globalIndex, axis, side)
}

// packFaces concatenates every slab's owner-side FaceSlab along (axis,
// side) into one flat buffer, in slab order.
func packFaces(slabs []*fields.Slab, axis, side int) []float64 {
	var out []float64
	for _, s := range slabs {
		out = append(out, s.FaceSlab(axis, side)...)
	}
	return out
}

// applyGhost scatters a packed buffer back into each slab's ghost band on
// (axis, side), in the same slab order packFaces used.
func applyGhost(slabs []*fields.Slab, axis, side int, buf []float64, additive bool) {
	off := 0
	for _, s := range slabs {
		n := len(s.GhostSlab(axis, side))
		chunk := buf[off : off+n]
		if additive {
			s.AddGhostBand(axis, side, chunk)
		} else {
			s.SetGhostBand(axis, side, chunk)
		}
		off += n
	}
}

func encodeFloats(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("vectorpatch: ghost payload length %d not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

// SumDensities is spec.md S4.4's additive J/rho exchange: compute_charge
// is Step's ResetCurrents plus the deposition Dynamics drives, and
// sum_densities performs the actual cross-patch ghost reduction.
func (vp *VectorPatch) SumDensities() error {
	return vp.exchangeGhosts(currentGroup, true)
}

// FinalizeSyncFields finishes the E/B ghost exchange (overwrite
// semantics) that apply_boundary and the mirror-domain scatter leave
// outstanding (spec.md S4.4 finalize_sync_and_bc_fields, first half).
func (vp *VectorPatch) FinalizeSyncFields() error {
	return vp.exchangeGhosts(emGroup, false)
}
