package species

import (
	"math"
	"testing"
)

func TestRemoveAtSwapsWithLast(t *testing.T) {
	c := NewContainer(Config{Mass: 1}, 4)
	for i := 0; i < 4; i++ {
		c.Add(Particle{Weight: float64(i)})
	}
	c.RemoveAt(1) // removes weight=1, swapped with weight=3
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	weights := map[float64]bool{}
	for _, p := range c.P {
		weights[p.Weight] = true
	}
	if weights[1] {
		t.Fatalf("particle with weight 1 should have been removed")
	}
	if !weights[0] || !weights[2] || !weights[3] {
		t.Fatalf("unexpected remaining weights: %v", c.P)
	}
}

func TestTotalKineticEnergyPhotonVsMassive(t *testing.T) {
	photons := NewContainer(Config{Mass: 0}, 1)
	photons.Add(Particle{Weight: 2, Momentum: [3]float64{3, 0, 0}})
	if got, want := photons.TotalKineticEnergy(), 6.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("photon KE = %v, want %v", got, want)
	}

	massive := NewContainer(Config{Mass: 1}, 1)
	massive.Add(Particle{Weight: 1, Momentum: [3]float64{0, 0, 0}})
	if got := massive.TotalKineticEnergy(); math.Abs(got) > 1e-12 {
		t.Fatalf("massive particle at rest should have zero KE, got %v", got)
	}
}

func TestSortByCellOrdersParticles(t *testing.T) {
	c := NewContainer(Config{Mass: 1}, 3)
	c.Add(Particle{Position: [3]float64{5, 0, 0}})
	c.Add(Particle{Position: [3]float64{1, 0, 0}})
	c.Add(Particle{Position: [3]float64{3, 0, 0}})
	c.SortByCell(func(pos [3]float64) int { return int(pos[0]) })
	var prev float64 = -1
	for _, p := range c.P {
		if p.Position[0] < prev {
			t.Fatalf("not sorted: %v", c.P)
		}
		prev = p.Position[0]
	}
}

func TestUniformDensityInjectsExpectedCount(t *testing.T) {
	c := NewContainer(Config{Mass: 1}, 0)
	u := UniformDensity{N0: 1, Weight: 1}
	u.Inject(c, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, [3]int{2, 3, 0})
	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}
}
