package solver

import (
	"math"
	"testing"

	"github.com/notargets/pic/species"
)

func TestBorisPusherPreservesGammaWithNoFields(t *testing.T) {
	p := &species.Particle{Momentum: [3]float64{1, 2, 3}}
	gammaBefore := math.Sqrt(1 + 1 + 4 + 9)
	BorisPusher{}.Push(1, 1, 0.01, p, FieldAt{})
	gammaAfter := math.Sqrt(1 + p.Momentum[0]*p.Momentum[0] + p.Momentum[1]*p.Momentum[1] + p.Momentum[2]*p.Momentum[2])
	if math.Abs(gammaAfter-gammaBefore) > 1e-9 {
		t.Fatalf("gamma changed with zero fields: %v -> %v", gammaBefore, gammaAfter)
	}
}

func TestBorisPusherLeavesAStationaryParticleInPlace(t *testing.T) {
	p := &species.Particle{Momentum: [3]float64{0, 0, 0}}
	BorisPusher{}.Push(1, 0, 1.0, p, FieldAt{})
	if p.Position != ([3]float64{}) {
		t.Fatalf("zero-momentum particle with no charge should not move, got %v", p.Position)
	}
}

func TestStraightLinePushForPhoton(t *testing.T) {
	p := &species.Particle{Momentum: [3]float64{1, 0, 0}}
	BorisPusher{}.Push(0, 0, 2.0, p, FieldAt{})
	if math.Abs(p.Position[0]-2.0) > 1e-12 {
		t.Fatalf("photon position[0] = %v, want 2.0", p.Position[0])
	}
}

type stubSink struct {
	j   map[[4]int]float64 // [axis,i,j,k]
	rho map[[3]int]float64
}

func newStubSink() *stubSink {
	return &stubSink{j: map[[4]int]float64{}, rho: map[[3]int]float64{}}
}

func (s *stubSink) AddJ(axis int, coord []int, v float64) {
	var k [4]int
	k[0] = axis
	copy(k[1:], coord)
	s.j[k] += v
}

func (s *stubSink) AddRho(coord []int, v float64) {
	var k [3]int
	copy(k[:], coord)
	s.rho[k] += v
}

func (s *stubSink) totalRho() float64 {
	var sum float64
	for _, v := range s.rho {
		sum += v
	}
	return sum
}

func TestZigZagDepositorConservesChargeAtRho(t *testing.T) {
	g := Grid{CellSize: [3]float64{1, 1, 1}, GhostOffset: [3]int{2, 2, 2}, NDim: 1}
	sink := newStubSink()
	ZigZagDepositor{}.Deposit(g, sink, 1.0, 1.0, [3]float64{2.3, 0, 0}, [3]float64{2.6, 0, 0}, 1.0)
	if math.Abs(sink.totalRho()-1.0) > 1e-9 {
		t.Fatalf("total deposited rho = %v, want 1.0 (weight*charge)", sink.totalRho())
	}
}

func TestShapeInterpolatorRecoversUniformField(t *testing.T) {
	g := Grid{CellSize: [3]float64{1, 1, 1}, GhostOffset: [3]int{2, 0, 0}, NDim: 1}
	uniform := uniformSource{val: 3.0}
	interp := NewShapeInterpolator()
	f := interp.Interpolate(g, uniform, [3]float64{2.37, 0, 0})
	if math.Abs(f.E[0]-3.0) > 1e-9 {
		t.Fatalf("Ex = %v, want 3.0 for a uniform field", f.E[0])
	}
}

type uniformSource struct{ val float64 }

func (u uniformSource) At(comp string, coord []int) float64 { return u.val }
