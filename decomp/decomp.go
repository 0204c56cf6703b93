// Package decomp implements the domain decomposition of spec.md S4.3: a
// patch grid laid out along a space-filling curve, each process owning a
// contiguous interval of the linear patch index. Neighbor rank lookup is
// O(log R) by binary search on a prefix sum of patch_count, the same
// technique gocfd's utils.PartitionMap.GetBucket uses for 1D element
// buckets (here, "bucket" becomes "owning rank" and "kDim" becomes
// "global patch index").
package decomp

import (
	"sort"

	"github.com/notargets/pic/sfc"
)

// Decomposition is the process-visible view of spec.md S4.3: it knows
// the SFC, the global patch-grid dimensions, and every rank's contiguous
// [offset, offset+count) run. A process otherwise knows only its own
// patches, per spec.md S4.3.
type Decomposition struct {
	Curve      sfc.Curve
	NPatches   int
	NProcs     int
	patchCount []int // per rank
	offset     []int // per rank, prefix sum of patchCount
}

// New builds an initial, balanced decomposition: N_patches split as
// evenly as possible across nProcs contiguous runs, mirroring the
// remainder-spreading in gocfd's PartitionMap.Split1D.
func New(dims []int, nProcs int) *Decomposition {
	curve := sfc.New(dims)
	n := curve.Len()
	d := &Decomposition{Curve: curve, NPatches: n, NProcs: nProcs}
	d.patchCount = splitEven(n, nProcs)
	d.rebuildOffsets()
	return d
}

// NewFromCounts rebuilds a Decomposition from an explicit per-rank patch
// count (e.g. restored from a checkpoint's /patch_distribution, or
// published by the load balancer's AllGather).
func NewFromCounts(dims []int, counts []int) *Decomposition {
	curve := sfc.New(dims)
	d := &Decomposition{Curve: curve, NPatches: curve.Len(), NProcs: len(counts), patchCount: append([]int(nil), counts...)}
	d.rebuildOffsets()
	return d
}

func splitEven(n, parts int) []int {
	counts := make([]int, parts)
	base := n / parts
	rem := n % parts
	for r := 0; r < parts; r++ {
		counts[r] = base
		if r < rem {
			counts[r]++
		}
	}
	return counts
}

func (d *Decomposition) rebuildOffsets() {
	d.offset = make([]int, d.NProcs)
	sum := 0
	for r := 0; r < d.NProcs; r++ {
		d.offset[r] = sum
		sum += d.patchCount[r]
	}
}

// Range returns the contiguous [min, max) patch-index interval rank r
// owns.
func (d *Decomposition) Range(r int) (min, max int) {
	min = d.offset[r]
	max = min + d.patchCount[r]
	return
}

func (d *Decomposition) Count(r int) int { return d.patchCount[r] }

func (d *Decomposition) Counts() []int { return append([]int(nil), d.patchCount...) }

// OwnerOf returns the rank owning global patch index p, found by binary
// search over the offset prefix sum — O(log R), per spec.md S4.3.
func (d *Decomposition) OwnerOf(p int) int {
	// sort.Search finds the first offset > p; the owner is one rank
	// before that, mirroring PartitionMap.getBucketWithTryCount's
	// bracketing search but without the linear nudge (offsets are
	// already sorted ascending by construction).
	r := sort.Search(d.NProcs, func(i int) bool { return d.offset[i] > p }) - 1
	if r < 0 {
		r = 0
	}
	return r
}

// NeighborRank resolves the owning rank of a neighboring patch index,
// the operation spec.md S4.3 requires every process be able to perform
// for each of its 6-face (3D) / 4-face (2D) neighbors.
func (d *Decomposition) NeighborRank(neighborPatch int) (rank int, ok bool) {
	if neighborPatch < 0 || neighborPatch >= d.NPatches {
		return 0, false
	}
	return d.OwnerOf(neighborPatch), true
}

// SetCounts replaces the per-rank patch counts, e.g. after a load-balance
// AllGather (spec.md S4.7 step 4) or a checkpoint restore under a
// different process count (spec.md S4.8).
func (d *Decomposition) SetCounts(counts []int) {
	d.patchCount = append([]int(nil), counts...)
	d.NProcs = len(counts)
	d.rebuildOffsets()
}
