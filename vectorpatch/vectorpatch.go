// Package vectorpatch implements the VectorPatch (C4) of spec.md S4.4:
// the per-process orchestrator for the time-step pipeline across every
// patch the process owns — charge/current ghost exchange, particle
// dynamics, cross-patch migration, field boundary enforcement, the
// initial Poisson solve, and the per-step diagnostics/antenna/collision/
// QED hooks.
package vectorpatch

import (
	"sort"

	"github.com/notargets/pic/comm"
	"github.com/notargets/pic/config"
	"github.com/notargets/pic/decomp"
	"github.com/notargets/pic/mirror"
	"github.com/notargets/pic/patch"
	"github.com/notargets/pic/qed"
)

// Antenna, Collisions, and ExternalFields are the per-patch local-operator
// plug-ins spec.md S4.4 names (apply_antennas, apply_collisions,
// apply_external_fields) as collaborators outside C4's own scope; the
// engine ships no-op defaults (NoAntenna, NoCollisions, NoExternalFields)
// so a deck that doesn't configure one still runs.
type Antenna interface{ Apply(p *patch.Patch, t float64) }
type Collisions interface{ Apply(p *patch.Patch, step int) }
type ExternalFields interface{ Apply(p *patch.Patch) }

type NoAntenna struct{}

func (NoAntenna) Apply(*patch.Patch, float64) {}

type NoCollisions struct{}

func (NoCollisions) Apply(*patch.Patch, int) {}

type NoExternalFields struct{}

func (NoExternalFields) Apply(*patch.Patch) {}

// VectorPatch orchestrates every patch this process owns (spec.md S4.4).
type VectorPatch struct {
	Deck      *config.DeckParams
	Decomp    *decomp.Decomposition
	Transport comm.Transport
	Factory   *patch.Factory

	Owned map[int]*patch.Patch // global index -> patch, this rank's patches only

	Antenna        Antenna
	Collisions     Collisions
	ExternalFields ExternalFields
	QED            qed.Process

	PatchGridDims []int
	CellsPerPatch []int
}

func New(deck *config.DeckParams, d *decomp.Decomposition, t comm.Transport) *VectorPatch {
	return &VectorPatch{
		Deck:           deck,
		Decomp:         d,
		Transport:      t,
		Factory:        patch.NewFactory(deck),
		Owned:          map[int]*patch.Patch{},
		Antenna:        NoAntenna{},
		Collisions:     NoCollisions{},
		ExternalFields: NoExternalFields{},
		QED:            qed.NoProcess{},
		PatchGridDims:  d.Curve.Dims(),
		CellsPerPatch:  deck.NSpacePerPatch,
	}
}

// ordered returns this rank's owned global indices in ascending order, so
// the per-step operations below iterate deterministically (needed for
// the restart bit-equivalence property of spec.md S8).
func (vp *VectorPatch) ordered() []int {
	idx := make([]int, 0, len(vp.Owned))
	for gi := range vp.Owned {
		idx = append(idx, gi)
	}
	sort.Ints(idx)
	return idx
}

func (vp *VectorPatch) isPeriodic(axis int) bool {
	return vp.Deck.EMBCs[axis][0] == config.EMPeriodic
}

// Initialize runs spec.md S4.1/S4.4's initialization-only solve_poisson
// pass, when the deck enables it, before the time loop starts.
func (vp *VectorPatch) Initialize(dom *mirror.Domain, cellsPerPatch []int) error {
	if !vp.Deck.SolvePoisson {
		return nil
	}
	dom.RebuildTile()
	owned := vp.patchSlice()
	blk := mirror.PatchedToCartesian(dom, owned, cellsPerPatch)
	if err := vp.SolvePoisson(dom, blk, poissonEps0, poissonTol, poissonMaxIter); err != nil {
		return err
	}
	mirror.CartesianToPatches(dom, owned, cellsPerPatch, blk)
	return nil
}
