package window

import (
	"testing"

	"github.com/notargets/pic/config"
	"github.com/notargets/pic/patch"
	"github.com/notargets/pic/species"
)

func testDeck() *config.DeckParams {
	return &config.DeckParams{
		Geometry:       config.Geometry1D3V,
		CellLength:     []float64{1},
		NSpaceGlobal:   []int{10},
		NSpacePerPatch: []int{10},
		HasWindow:      true,
		WindowTStart:   0,
		WindowVelocity: 1,
		Species: []config.SpeciesConfig{
			{Name: "e", Mass: 1, Charge: -1, BoundaryConditions: [][2]config.ParticlePolicy{{config.PolicyPeriodic, config.PolicyPeriodic}}},
		},
	}
}

func TestShouldOperateHonorsScheduleAndStart(t *testing.T) {
	w := &Window{TStart: 5, Every: 2}
	if w.ShouldOperate(4, 10) {
		t.Fatalf("should not operate before t_start")
	}
	if w.ShouldOperate(6, 3) {
		t.Fatalf("should not operate off-schedule")
	}
	if !w.ShouldOperate(6, 4) {
		t.Fatalf("should operate on schedule after t_start")
	}
}

func TestOperateIsMonotonicAndIntegerCells(t *testing.T) {
	deck := testDeck()
	f := patch.NewFactory(deck)
	w := New(deck, species.UniformDensity{N0: 1, Weight: 1})

	next := 1
	owned := []*patch.Patch{f.Create(0, []int{0}, []bool{true}, []bool{true})}
	before := w.NMoved
	w.Operate(&owned, f, deck.NSpacePerPatch, func() int { n := next; next++; return n })
	if w.NMoved != before+1 {
		t.Fatalf("NMoved = %d, want %d", w.NMoved, before+1)
	}
	if len(owned) != 2 {
		t.Fatalf("owned patches = %d, want 2 (original retained + one created)", len(owned))
	}
}

func TestOperateRetiresTrailingPatchAndCountsLoss(t *testing.T) {
	deck := testDeck()
	deck.NSpacePerPatch = []int{2}
	f := patch.NewFactory(deck)
	w := New(deck, nil)
	w.NMoved = 1 // pretend one shift already happened, trailing edge at x=2

	p := f.Create(0, []int{0}, []bool{true}, []bool{true})
	p.Species[0].Add(species.Particle{Weight: 3, Momentum: [3]float64{4, 0, 0}})
	owned := []*patch.Patch{p}
	next := 1
	res := w.Operate(&owned, f, deck.NSpacePerPatch, func() int { n := next; next++; return n })

	if len(res.Retired) != 1 || res.Retired[0] != 0 {
		t.Fatalf("expected patch 0 retired, got %v", res.Retired)
	}
	if w.LostParticleCount != 1 {
		t.Fatalf("LostParticleCount = %d, want 1", w.LostParticleCount)
	}
	if w.LostParticleEnergy <= 0 {
		t.Fatalf("LostParticleEnergy should be positive, got %v", w.LostParticleEnergy)
	}
}
