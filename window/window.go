// Package window implements the Moving Window (C6) of spec.md S4.6: a
// sliding frame along the x axis that retires trailing patches and
// creates leading ones on an integer-cell schedule.
package window

import (
	"github.com/notargets/pic/config"
	"github.com/notargets/pic/patch"
	"github.com/notargets/pic/species"
)

// Window tracks n_moved (spec.md S3 "moving window state") and the
// configured trigger.
type Window struct {
	TStart   float64
	Every    int // shift every k steps
	NMoved   int // monotonically nondecreasing
	Injector species.InjectionProfile

	LostParticleCount  int
	LostParticleEnergy float64
}

func New(deck *config.DeckParams, injector species.InjectionProfile) *Window {
	return &Window{TStart: deck.WindowTStart, Every: deck.WindowVelocity, Injector: injector}
}

// ShouldOperate reports whether the window shifts this step (spec.md
// S4.6 "Configuration: ... trigger time t_start, cell-integer velocity
// (shifts every k steps)").
func (w *Window) ShouldOperate(t float64, step int) bool {
	if t < w.TStart || w.Every <= 0 {
		return false
	}
	return step%w.Every == 0
}

// Result reports what Operate did, for the driver's diagnostics and for
// property tests verifying monotonicity (spec.md S8).
type Result struct {
	Retired []int          // global indices of patches destroyed
	Created []*patch.Patch // newly instantiated patches, populated and ready to own
}

// Operate performs one window shift (spec.md S4.6 (a)(b)(c)): increments
// n_moved, destroys any patch whose trailing edge now lies outside the
// active domain (recording lost particles), and instantiates one new
// patch row at the leading edge populated from the injection profile
// with zero fields. owned is the caller's live patch slice; retired
// patches are removed from it. nextGlobalIndex supplies the re-keyed SFC
// index for the newly created patch, per spec.md S4.6's "re-keyed
// consistently".
func (w *Window) Operate(owned *[]*patch.Patch, factory *patch.Factory, cellsPerPatch []int, nextGlobalIndex func() int) Result {
	w.NMoved++
	cellSize := factory.Deck.CellLength
	trailingEdge := float64(w.NMoved) * cellSize[0]

	var kept []*patch.Patch
	var res Result
	maxCoord := -1
	for _, p := range *owned {
		trailing := p.Origin[0] + float64(cellsPerPatch[0])*cellSize[0]
		if trailing <= trailingEdge {
			w.retire(p)
			res.Retired = append(res.Retired, p.GlobalIndex)
			continue
		}
		kept = append(kept, p)
		if len(p.PatchCoord) > 0 && p.PatchCoord[0] > maxCoord {
			maxCoord = p.PatchCoord[0]
		}
	}
	*owned = kept

	nd := len(cellsPerPatch)
	leadCoord := make([]int, nd)
	leadCoord[0] = maxCoord + 1
	isMin := make([]bool, nd)
	isMax := make([]bool, nd)
	isMax[0] = true

	gi := nextGlobalIndex()
	newPatch := factory.Create(gi, leadCoord, isMin, isMax)
	if w.Injector != nil {
		origin := newPatch.Origin
		var cell [3]float64
		copy(cell[:], cellSize)
		extent := [3]int{}
		for a := 0; a < nd; a++ {
			extent[a] = cellsPerPatch[a]
		}
		for _, c := range newPatch.Species {
			w.Injector.Inject(c, origin, cell, extent)
		}
	}
	*owned = append(*owned, newPatch)
	res.Created = append(res.Created, newPatch)
	return res
}

// retire discards p's particles after folding their kinetic energy and
// count into the window's lost-particle accounting (spec.md S4.6(b)
// "discarded after being recorded to the global lost-particle counter").
func (w *Window) retire(p *patch.Patch) {
	for _, c := range p.Species {
		w.LostParticleCount += c.Len()
		w.LostParticleEnergy += c.TotalKineticEnergy()
		c.P = c.P[:0]
	}
}
