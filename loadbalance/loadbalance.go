// Package loadbalance implements the Load Balancer (C7) of spec.md
// S4.7: a cost-weighted greedy repartition along the space-filling
// curve, migrating patches between processes and republishing
// patch_count[]/offset[] via an allgather.
package loadbalance

import (
	"encoding/json"

	"github.com/notargets/pic/comm"
	"github.com/notargets/pic/decomp"
	"github.com/notargets/pic/patch"
	"gonum.org/v1/gonum/floats"
)

// Schedule is the configurable theTimeIsNow predicate (spec.md S4.7
// "Trigger"): either a regular interval or an explicit list of steps.
type Schedule struct {
	Every        int
	ExplicitStep map[int]bool
}

func IntervalSchedule(every int) Schedule { return Schedule{Every: every} }

func ExplicitSchedule(steps []int) Schedule {
	m := make(map[int]bool, len(steps))
	for _, s := range steps {
		m[s] = true
	}
	return Schedule{ExplicitStep: m}
}

func (s Schedule) TheTimeIsNow(step int) bool {
	if s.ExplicitStep != nil {
		return s.ExplicitStep[step]
	}
	return s.Every > 0 && step%s.Every == 0
}

// CostModel is the α·N_particles + β·N_cells estimator (spec.md S4.7
// step 1), the same linear shape gocfd's mesh_partitioner.go
// computeCostModel/commCostModel uses for its own per-element cost, here
// applied per patch instead of per mesh element.
type CostModel struct {
	Alpha, Beta float64
}

func (c CostModel) Cost(nParticles, nCells int) float64 {
	return c.Alpha*float64(nParticles) + c.Beta*float64(nCells)
}

// Plan is the result of step 2: R contiguous cost ranges over the SFC.
type Plan struct {
	Counts []int // per rank, patch count in the new decomposition
}

// ComputeCosts evaluates CostModel per patch index in SFC order, using
// ownedPatches to look up per-patch particle/cell counts for the patches
// this rank currently owns and zero for others — the caller's driver
// must gather full per-patch costs via AllGather before calling BuildPlan (see
// GatherCosts), since a process only has local visibility (spec.md S4.3).
func ComputeCosts(nPatches int, nCellsPerPatch int, cm CostModel, owned []*patch.Patch) []float64 {
	costs := make([]float64, nPatches)
	for _, p := range owned {
		n := 0
		for _, c := range p.Species {
			n += c.Len()
		}
		costs[p.GlobalIndex] = cm.Cost(n, nCellsPerPatch)
	}
	return costs
}

// GatherCosts all-gathers each rank's local cost contribution (only its
// own patches' entries are nonzero) and sums them into a single global
// cost-per-patch array, since patches are disjoint across ranks.
func GatherCosts(t comm.Transport, localCosts []float64) ([]float64, error) {
	buf, err := json.Marshal(localCosts)
	if err != nil {
		return nil, err
	}
	all, err := t.AllGather(buf)
	if err != nil {
		return nil, err
	}
	global := make([]float64, len(localCosts))
	for _, raw := range all {
		var part []float64
		if err := json.Unmarshal(raw, &part); err != nil {
			return nil, err
		}
		for i, v := range part {
			if i < len(global) {
				global[i] += v
			}
		}
	}
	return global, nil
}

// BuildPlan performs step 2 of spec.md S4.7: prefix-sum the per-patch costs
// and split into nRanks contiguous ranges of approximately equal total
// cost via a greedy accumulate-and-cut pass — the same greedy
// equal-partition shape gocfd's mesh_partitioner applies to element
// costs, generalized from element index to SFC patch index.
func BuildPlan(costs []float64, nRanks int) Plan {
	total := floats.Sum(costs)
	target := total / float64(nRanks)
	counts := make([]int, nRanks)
	rank := 0
	var acc float64
	for i, c := range costs {
		if rank < nRanks-1 && acc >= target && counts[rank] > 0 {
			rank++
			acc = 0
		}
		counts[rank]++
		acc += c
		_ = i
	}
	return Plan{Counts: counts}
}

// Migration describes one patch's ownership change (spec.md S4.7 step
// 3): its full state must be sent to the new owner and freed locally.
type Migration struct {
	GlobalIndex int
	FromRank    int
	ToRank      int
}

// PlanMigrations diffs the current and new decompositions to produce the
// set of patches changing owner.
func PlanMigrations(old, new_ *decomp.Decomposition) []Migration {
	var out []Migration
	for p := 0; p < old.NPatches; p++ {
		from := old.OwnerOf(p)
		to := new_.OwnerOf(p)
		if from != to {
			out = append(out, Migration{GlobalIndex: p, FromRank: from, ToRank: to})
		}
	}
	return out
}

// Rebalance runs the full C7 algorithm end to end for one process: it
// determines which of its own patches must migrate away, sends their
// serialized state to the new owner over t, and restores any patches
// newly assigned to it. owned must already contain an allocated (empty)
// placeholder — built by patch.Factory.Create — for every global index
// this rank is about to receive; Rebalance only overwrites their dynamic
// state. The caller is responsible for calling mirror.Domain.RebuildTile
// afterward (spec.md S4.7 step 5: "Invalidate and rebuild the Cartesian
// Mirror Domain rectangular partition").
func Rebalance(t comm.Transport, oldDecomp *decomp.Decomposition, plan Plan, owned map[int]*patch.Patch) (*decomp.Decomposition, error) {
	newDecomp := decomp.NewFromCounts(dimsOf(oldDecomp), plan.Counts)
	migrations := PlanMigrations(oldDecomp, newDecomp)
	me := t.Rank()

	for _, m := range migrations {
		if comm.Rank(m.FromRank) != me {
			continue
		}
		p, ok := owned[m.GlobalIndex]
		if !ok {
			continue
		}
		blob, err := p.Snapshot()
		if err != nil {
			return nil, err
		}
		t.Send(comm.Rank(m.ToRank), migrationTag(m.GlobalIndex), blob)
		delete(owned, m.GlobalIndex)
	}
	t.Flush()
	if err := t.Barrier(); err != nil {
		return nil, err
	}

	for _, m := range migrations {
		if comm.Rank(m.ToRank) != me {
			continue
		}
		msgs := t.Recv(migrationTag(m.GlobalIndex))
		for _, blob := range msgs {
			p, ok := owned[m.GlobalIndex]
			if !ok {
				continue
			}
			if err := p.RestoreFromSnapshot(blob); err != nil {
				return nil, err
			}
		}
	}
	return newDecomp, nil
}

func dimsOf(d *decomp.Decomposition) []int { return d.Curve.Dims() }

func migrationTag(globalIndex int) string {
	return "lb:" + itoa(globalIndex)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
