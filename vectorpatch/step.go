package vectorpatch

import (
	"github.com/notargets/pic/decomp"
	"github.com/notargets/pic/diag"
	"github.com/notargets/pic/loadbalance"
	"github.com/notargets/pic/mirror"
	"github.com/notargets/pic/patch"
	"github.com/notargets/pic/window"
)

const (
	poissonEps0    = 1.0
	poissonTol     = 1e-6
	poissonMaxIter = 2000
)

// Step runs one full iteration in spec.md S4.9's pseudocode order:
// collisions, dynamics, sum_densities, antennas and external fields,
// then (unless frozen) the barrier-bracketed mirror-domain Maxwell
// solve, particle migration, field ghost finish plus boundary
// conditions, diagnostics, moving window, and finally load balance.
func (vp *VectorPatch) Step(dom *mirror.Domain, cellsPerPatch []int, win *window.Window, lb *loadbalance.Schedule, cost loadbalance.CostModel, sink diag.Sink, step int, t, dt float64) error {
	vp.ApplyCollisions(step)
	vp.ApplyQED(dt)

	for _, gi := range vp.ordered() {
		vp.Owned[gi].Fields.ResetCurrents()
	}
	vp.Dynamics(dt)

	if err := vp.SumDensities(); err != nil {
		return err
	}

	vp.ApplyAntennas(t)
	vp.ApplyExternalFields()

	if mirror.ShouldSolve(t, vp.Deck.TimeFieldsFrozen) {
		if err := vp.Transport.Barrier(); err != nil {
			return err
		}
		dom.RebuildTile()
		owned := vp.patchSlice()
		blk := mirror.PatchedToCartesian(dom, owned, cellsPerPatch)
		if err := vp.Transport.Barrier(); err != nil {
			return err
		}
		var cellSize [3]float64
		copy(cellSize[:], vp.Deck.CellLength)
		dom.SolveMaxwell(blk, cellSize, dt, t, vp.Deck.TimeFieldsFrozen)
		mirror.CartesianToPatches(dom, owned, cellsPerPatch, blk)
	}

	if err := vp.FinalizeAndSortPartsDefault(); err != nil {
		return err
	}
	if err := vp.FinalizeSyncFields(); err != nil {
		return err
	}
	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		for si := range p.Species {
			p.ApplyBoundary(si)
		}
	}

	if sink != nil {
		if err := sink.Write(vp.diagSnapshot(step, t)); err != nil {
			return err
		}
	}

	if win != nil && win.ShouldOperate(t, step) {
		vp.runWindow(win, cellsPerPatch)
	}

	if lb != nil && lb.TheTimeIsNow(step) {
		if err := vp.runLoadBalance(cost); err != nil {
			return err
		}
		dom.Decomp = vp.Decomp
	}

	return nil
}

func (vp *VectorPatch) patchSlice() []*patch.Patch {
	out := make([]*patch.Patch, 0, len(vp.Owned))
	for _, gi := range vp.ordered() {
		out = append(out, vp.Owned[gi])
	}
	return out
}

func (vp *VectorPatch) ApplyAntennas(t float64) {
	for _, gi := range vp.ordered() {
		vp.Antenna.Apply(vp.Owned[gi], t)
	}
}

func (vp *VectorPatch) ApplyCollisions(step int) {
	for _, gi := range vp.ordered() {
		vp.Collisions.Apply(vp.Owned[gi], step)
	}
}

func (vp *VectorPatch) ApplyQED(dt float64) {
	for _, gi := range vp.ordered() {
		vp.QED.Apply(vp.Owned[gi], dt)
	}
}

func (vp *VectorPatch) ApplyExternalFields() {
	for _, gi := range vp.ordered() {
		vp.ExternalFields.Apply(vp.Owned[gi])
	}
}

// diagSnapshot assembles spec.md S4.2's boundary-loss counters (removed
// energy, removed charge, and the photon-energy carved out of removed
// energy for QED-produced photons) by summing every owned patch's
// per-species pbc.Dispatcher face counters, alongside this step's patch
// set for run_all_diags's own per-species accounting.
func (vp *VectorPatch) diagSnapshot(step int, t float64) diag.Snapshot {
	var lostEnergy, lostCharge, photonEnergy float64
	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		for si, d := range p.Boundary {
			for axis := 0; axis < p.NDimField; axis++ {
				for side := 0; side < 2; side++ {
					c := d.Counters(axis, side)
					lostEnergy += c.RemovedEnergy
					lostCharge += c.RemovedCharge * p.Species[si].Species.Charge
					photonEnergy += c.RemovedPhotonEnergy
				}
			}
		}
	}
	return diag.Snapshot{
		Step:         step,
		Time:         t,
		Patches:      vp.patchSlice(),
		LostEnergy:   lostEnergy,
		LostCharge:   lostCharge,
		PhotonEnergy: photonEnergy,
	}
}

// runWindow bridges the map-keyed Owned set to window.Operate's
// slice-based API, folding the result back (spec.md S4.6 shift, run
// from inside C4's per-step pipeline at the ordering point S4.9 names).
func (vp *VectorPatch) runWindow(win *window.Window, cellsPerPatch []int) {
	owned := vp.patchSlice()
	next := vp.nextGlobalIndex()
	res := win.Operate(&owned, vp.Factory, cellsPerPatch, next)
	for _, gi := range res.Retired {
		delete(vp.Owned, gi)
	}
	for _, p := range res.Created {
		vp.Owned[p.GlobalIndex] = p
	}
}

func (vp *VectorPatch) nextGlobalIndex() func() int {
	max := -1
	for gi := range vp.Owned {
		if gi > max {
			max = gi
		}
	}
	return func() int {
		max++
		return max
	}
}

// runLoadBalance computes this rank's local cost contribution, gathers
// the global cost vector, builds the new decomposition, allocates empty
// placeholders for every patch this rank is about to receive (Rebalance
// only overwrites a placeholder's dynamic state, per its own doc), and
// migrates (spec.md S4.7 steps 1-4; step 5's Mirror Domain invalidation
// happens naturally on the next Step's dom.RebuildTile call).
func (vp *VectorPatch) runLoadBalance(cost loadbalance.CostModel) error {
	nPatches := vp.Decomp.NPatches
	local := make([]float64, nPatches)
	for _, gi := range vp.ordered() {
		p := vp.Owned[gi]
		n := 0
		for _, c := range p.Species {
			n += c.Len()
		}
		cells := 1
		for _, d := range p.Fields.Rho.Dims {
			cells *= d
		}
		local[gi] = cost.Cost(n, cells)
	}
	costs, err := loadbalance.GatherCosts(vp.Transport, local)
	if err != nil {
		return err
	}
	plan := loadbalance.BuildPlan(costs, vp.Decomp.NProcs)
	newDecomp := decomp.NewFromCounts(vp.Decomp.Curve.Dims(), plan.Counts)

	me := int(vp.Transport.Rank())
	for _, m := range loadbalance.PlanMigrations(vp.Decomp, newDecomp) {
		if m.ToRank != me {
			continue
		}
		if _, ok := vp.Owned[m.GlobalIndex]; ok {
			continue
		}
		vp.Owned[m.GlobalIndex] = vp.placeholderPatch(m.GlobalIndex)
	}

	rebuilt, err := loadbalance.Rebalance(vp.Transport, vp.Decomp, plan, vp.Owned)
	if err != nil {
		return err
	}
	vp.Decomp = rebuilt
	return nil
}

// placeholderPatch allocates an empty patch at globalIndex so an
// incoming migration has somewhere to restore into (spec.md S4.7 step
// 3 "receiver ... reconstitutes it").
func (vp *VectorPatch) placeholderPatch(globalIndex int) *patch.Patch {
	coord := vp.Decomp.Curve.Decode(globalIndex)
	isMin := make([]bool, len(coord))
	isMax := make([]bool, len(coord))
	for a, c := range coord {
		isMin[a] = c == 0
		isMax[a] = c == vp.PatchGridDims[a]-1
	}
	return vp.Factory.Create(globalIndex, coord, isMin, isMax)
}
