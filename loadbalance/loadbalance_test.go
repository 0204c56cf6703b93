package loadbalance

import (
	"testing"

	"github.com/notargets/pic/decomp"
)

func TestIntervalScheduleFiresOnMultiples(t *testing.T) {
	s := IntervalSchedule(10)
	if s.TheTimeIsNow(5) {
		t.Fatalf("should not fire at step 5")
	}
	if !s.TheTimeIsNow(20) {
		t.Fatalf("should fire at step 20")
	}
}

func TestExplicitScheduleFiresOnlyOnListedSteps(t *testing.T) {
	s := ExplicitSchedule([]int{3, 7})
	if s.TheTimeIsNow(4) {
		t.Fatalf("should not fire on unlisted step")
	}
	if !s.TheTimeIsNow(7) {
		t.Fatalf("should fire on listed step")
	}
}

func TestBuildPlanCoversAllPatchesAcrossRanks(t *testing.T) {
	costs := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	plan := BuildPlan(costs, 4)
	sum := 0
	for _, c := range plan.Counts {
		sum += c
	}
	if sum != len(costs) {
		t.Fatalf("plan covers %d patches, want %d", sum, len(costs))
	}
	if len(plan.Counts) != 4 {
		t.Fatalf("plan has %d ranks, want 4", len(plan.Counts))
	}
}

func TestPlanMigrationsOnlyReportsChangedOwners(t *testing.T) {
	old := decomp.New([]int{8}, 2)
	newer := decomp.NewFromCounts([]int{8}, []int{2, 6})
	migs := PlanMigrations(old, newer)
	for _, m := range migs {
		if m.FromRank == m.ToRank {
			t.Fatalf("migration %+v should change owner", m)
		}
	}
	if len(migs) == 0 {
		t.Fatalf("expected at least one migration between differing decompositions")
	}
}
