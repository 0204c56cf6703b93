// Package patch implements the Patch (C1) of spec.md S4.1: the local
// per-sub-grid state (fields, species containers) and the per-particle
// operations (interpolate, push, deposit, apply_boundary, pack/unpack)
// that the VectorPatch orchestrates each step.
package patch

import (
	"bytes"
	"encoding/gob"

	"github.com/notargets/pic/config"
	"github.com/notargets/pic/fields"
	"github.com/notargets/pic/pbc"
	"github.com/notargets/pic/solver"
	"github.com/notargets/pic/species"
)

// Patch is one contiguous sub-grid of the global domain, owned by
// exactly one process at a time (spec.md S3 "Patch").
type Patch struct {
	GlobalIndex int
	PatchCoord  []int // position in the patch grid, one entry per axis
	NDimField   int
	NDimPart    int

	CellSize [3]float64
	Origin   [3]float64 // physical position of this patch's first interior cell
	Ghost    []int

	Fields   *fields.State
	Species  []*species.Container
	Boundary []*pbc.Dispatcher // one per species, indexed the same as Species

	IsGlobalMin []bool // per axis: is this patch's min face the global domain boundary
	IsGlobalMax []bool

	Interp   solver.Interpolator
	Pusher   solver.Pusher
	Deposit_ solver.Depositor

	Leaving [][3][2][]LeavingParticle // [speciesIdx][axis][side] accumulated this step; cleared each finalize
}

// LeavingParticle is a particle that crossed a patch face this step,
// queued for pack/unpack across the owning process boundary (spec.md
// S4.1 pack/unpack).
type LeavingParticle struct {
	Species int
	P       species.Particle
}

// Factory builds Patches from deck parameters, the shared default plug-in
// set (spec.md S4.1's create()).
type Factory struct {
	Deck     *config.DeckParams
	Interp   solver.Interpolator
	Pusher   solver.Pusher
	Deposit_ solver.Depositor
}

func NewFactory(deck *config.DeckParams) *Factory {
	return &Factory{
		Deck:     deck,
		Interp:   solver.NewShapeInterpolator(),
		Pusher:   solver.BorisPusher{},
		Deposit_: solver.ZigZagDepositor{},
	}
}

// Create builds an empty Patch at globalIndex covering a local extent of
// n_space_per_patch cells per axis, with the species containers and
// per-species boundary dispatcher compiled from the deck (spec.md S4.1
// create(global_index, extents, species_configs)).
func (f *Factory) Create(globalIndex int, patchCoord []int, isGlobalMin, isGlobalMax []bool) *Patch {
	nd := f.Deck.Geometry.NDimField()
	ghost := make([]int, nd)
	for i := range ghost {
		ghost[i] = 2 // second-order stencil + linear shape needs one band; two is the Yee+CIC safety margin
	}
	origin := make([]float64, 3)
	for a := 0; a < nd && a < 3; a++ {
		origin[a] = float64(patchCoord[a]*f.Deck.NSpacePerPatch[a]) * f.Deck.CellLength[a]
	}
	var originArr, cellArr [3]float64
	copy(originArr[:], origin)
	copy(cellArr[:], f.Deck.CellLength)

	p := &Patch{
		GlobalIndex: globalIndex,
		PatchCoord:  append([]int(nil), patchCoord...),
		NDimField:   nd,
		NDimPart:    f.Deck.Geometry.NDimParticle(),
		CellSize:    cellArr,
		Origin:      originArr,
		Ghost:       ghost,
		Fields:      fields.NewState(f.Deck.NSpacePerPatch[:nd], ghost),
		IsGlobalMin: isGlobalMin,
		IsGlobalMax: isGlobalMax,
		Interp:      f.Interp,
		Pusher:      f.Pusher,
		Deposit_:    f.Deposit_,
	}
	for _, sc := range f.Deck.Species {
		p.Species = append(p.Species, species.NewContainer(species.Config{
			Name: sc.Name, Mass: sc.Mass, Charge: sc.Charge, Tracked: sc.Tracked,
		}, 0))
		p.Boundary = append(p.Boundary, pbc.NewDispatcher(nd, sc.BoundaryConditions, sc.ThermalMomentum))
	}
	p.Leaving = make([][3][2][]LeavingParticle, len(f.Deck.Species))
	return p
}

// snapshot is the serializable form create_from_snapshot restores from
// (spec.md S4.1, S4.8: per-patch field + particle payloads inside the
// checkpoint blob).
type snapshot struct {
	GlobalIndex int
	PatchCoord  []int
	FieldData   map[string][]float64
	Particles   [][]species.Particle // indexed by species
}

// Snapshot serializes this patch's field and particle state (used by
// package checkpoint to assemble the per-patch payload).
func (p *Patch) Snapshot() ([]byte, error) {
	s := snapshot{
		GlobalIndex: p.GlobalIndex,
		PatchCoord:  p.PatchCoord,
		FieldData:   map[string][]float64{},
		Particles:   make([][]species.Particle, len(p.Species)),
	}
	for i, comp := range []struct {
		name string
		s    *fields.Slab
	}{
		{"Ex", p.Fields.E[0]}, {"Ey", p.Fields.E[1]}, {"Ez", p.Fields.E[2]},
		{"Bx", p.Fields.B[0]}, {"By", p.Fields.B[1]}, {"Bz", p.Fields.B[2]},
		{"Jx", p.Fields.J[0]}, {"Jy", p.Fields.J[1]}, {"Jz", p.Fields.J[2]},
		{"Rho", p.Fields.Rho},
	} {
		s.FieldData[comp.name] = append([]float64(nil), comp.s.Data()...)
		_ = i
	}
	for i, c := range p.Species {
		s.Particles[i] = append([]species.Particle(nil), c.P...)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestoreFromSnapshot restores field and particle state into an
// already-constructed Patch (field/ghost geometry and per-species
// dispatchers come from Factory.Create; only the dynamic state is
// overwritten), spec.md S4.1 create_from_snapshot(blob).
func (p *Patch) RestoreFromSnapshot(blob []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&s); err != nil {
		return err
	}
	slabs := []*fields.Slab{
		p.Fields.E[0], p.Fields.E[1], p.Fields.E[2],
		p.Fields.B[0], p.Fields.B[1], p.Fields.B[2],
		p.Fields.J[0], p.Fields.J[1], p.Fields.J[2],
		p.Fields.Rho,
	}
	names := []string{"Ex", "Ey", "Ez", "Bx", "By", "Bz", "Jx", "Jy", "Jz", "Rho"}
	for i, name := range names {
		if data, ok := s.FieldData[name]; ok {
			copy(slabs[i].Data(), data)
		}
	}
	for i := range p.Species {
		if i < len(s.Particles) {
			p.Species[i].P = append([]species.Particle(nil), s.Particles[i]...)
		}
	}
	return nil
}
