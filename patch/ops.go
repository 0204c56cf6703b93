package patch

import (
	"bytes"
	"encoding/gob"

	"github.com/notargets/pic/solver"
	"github.com/notargets/pic/species"
)

// grid builds the solver.Grid a Pusher/Interpolator/Depositor call needs
// to translate a particle's physical position into this patch's local
// staggered-grid coordinates.
func (p *Patch) grid() solver.Grid {
	g := solver.Grid{CellSize: p.CellSize, Origin: p.Origin, NDim: p.NDimField}
	for a := 0; a < 3 && a < len(p.Ghost); a++ {
		g.GhostOffset[a] = p.Ghost[a]
	}
	return g
}

// fieldAdapter adapts a patch's fields.State to solver.FieldSource.
func (p *Patch) fieldSource() solver.FieldSource { return fieldAdapter{p} }

type fieldAdapter struct{ p *Patch }

func (f fieldAdapter) At(comp string, coord []int) float64 {
	var idx int
	switch comp {
	case "Ex":
		idx = 0
	case "Ey":
		idx = 1
	case "Ez":
		idx = 2
	case "Bx":
		idx = 0
	case "By":
		idx = 1
	default:
		idx = 2
	}
	if comp[0] == 'E' {
		return f.p.Fields.E[idx].At(coord...)
	}
	return f.p.Fields.B[idx].At(coord...)
}

type currentSink struct{ p *Patch }

func (s currentSink) AddJ(axis int, coord []int, v float64)  { s.p.Fields.J[axis].Add(v, coord...) }
func (s currentSink) AddRho(coord []int, v float64)          { s.p.Fields.Rho.Add(v, coord...) }

// InterpolateFields returns (E,B) at p's position via the configured
// shape-function order (spec.md S4.1 interpolate_fields).
func (p *Patch) InterpolateFields(particle *species.Particle) solver.FieldAt {
	return p.Interp.Interpolate(p.grid(), p.fieldSource(), particle.Position)
}

// Push advances every live particle of speciesIdx by dt and records any
// that left the patch's owned interior into p.Leaving, keyed by the face
// crossed (spec.md S4.1 push: "flags particles that left the patch").
func (p *Patch) Push(speciesIdx int, dt float64) {
	c := p.Species[speciesIdx]
	mass := c.Species.Mass
	charge := c.Species.Charge
	for i := 0; i < len(c.P); {
		part := &c.P[i]
		f := p.InterpolateFields(part)
		old := part.Position
		p.Pusher.Push(mass, charge, dt, part, f)
		if axis, side, left := p.crossedFace(old, part.Position); left {
			p.Leaving[speciesIdx][axis][side] = append(p.Leaving[speciesIdx][axis][side], LeavingParticle{Species: speciesIdx, P: *part})
			c.RemoveAt(i)
			continue
		}
		i++
	}
}

// crossedFace reports the first axis/side a particle's new position lies
// outside this patch's owned interior (in physical coordinates), if any.
func (p *Patch) crossedFace(old, cur [3]float64) (axis, side int, left bool) {
	for a := 0; a < p.NDimField; a++ {
		lo := p.Origin[a]
		hi := p.Origin[a] + float64(p.extentCells(a))*p.CellSize[a]
		if cur[a] < lo {
			return a, 0, true
		}
		if cur[a] >= hi {
			return a, 1, true
		}
	}
	return 0, 0, false
}

func (p *Patch) extentCells(axis int) int {
	return p.Fields.Rho.Dims[axis]
}

// Deposit accumulates speciesIdx's macro-particles' charge-conserving
// current and charge density onto J and rho (spec.md S4.1 deposit).
// oldPositions must be the pre-push positions captured by the caller;
// the VectorPatch dynamics loop captures them for a whole species, calls
// Push, then calls Deposit, pairing oldPositions[i] with the i-th particle
// still in the container.
func (p *Patch) Deposit(speciesIdx int, dt float64, oldPositions []([3]float64)) {
	c := p.Species[speciesIdx]
	charge := c.Species.Charge
	sink := currentSink{p: p}
	g := p.grid()
	for i, part := range c.P {
		if i >= len(oldPositions) {
			break
		}
		p.Deposit_.Deposit(g, sink, dt, charge, oldPositions[i], part.Position, part.Weight)
	}
}

// ApplyBoundary delegates each of this step's queued leaving particles to
// the Boundary Dispatcher for speciesIdx, on the faces that are global
// boundaries; particles on interior faces are left in Leaving for the
// VectorPatch's cross-patch exchange (spec.md S4.1 apply_boundary, S4.2
// edge cases).
func (p *Patch) ApplyBoundary(speciesIdx int) {
	c := p.Species[speciesIdx]
	mass := c.Species.Mass
	disp := p.Boundary[speciesIdx]
	for axis := 0; axis < p.NDimField; axis++ {
		for side := 0; side < 2; side++ {
			isGlobal := (side == 0 && p.IsGlobalMin[axis]) || (side == 1 && p.IsGlobalMax[axis])
			if !isGlobal {
				continue // interior face: leave queued for the VectorPatch's cross-patch exchange
			}
			facePos := p.facePosition(axis, side)
			kept := p.Leaving[speciesIdx][axis][side][:0]
			for _, lp := range p.Leaving[speciesIdx][axis][side] {
				part := lp.P
				outcome := disp.Apply(mass, &part, axis, side, facePos, isGlobal)
				if outcome.Kept {
					c.Add(part)
				}
			}
			p.Leaving[speciesIdx][axis][side] = kept
		}
	}
}

func (p *Patch) facePosition(axis, side int) float64 {
	if side == 0 {
		return p.Origin[axis]
	}
	return p.Origin[axis] + float64(p.extentCells(axis))*p.CellSize[axis]
}

// Pack serializes the particles still queued in Leaving on (axis,side)
// (i.e. those that crossed an interior or periodic face and need
// cross-patch delivery) into a transport-ready buffer (spec.md S4.1
// pack/unpack).
func (p *Patch) Pack(speciesIdx, axis, side int) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p.Leaving[speciesIdx][axis][side]); err != nil {
		return nil, err
	}
	p.Leaving[speciesIdx][axis][side] = nil
	return buf.Bytes(), nil
}

// Unpack is the receiver-side reverse of Pack: appends the decoded
// particles directly into the species container (spec.md S4.1
// pack/unpack "reverse operation on the receiver").
func (p *Patch) Unpack(speciesIdx int, buf []byte) error {
	var arriving []LeavingParticle
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&arriving); err != nil {
		return err
	}
	for _, a := range arriving {
		p.Species[speciesIdx].Add(a.P)
	}
	return nil
}
