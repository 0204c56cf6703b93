package pbc

import (
	"math"
	"testing"

	"github.com/notargets/pic/config"
	"github.com/notargets/pic/species"
)

func TestReflectiveIdempotence(t *testing.T) {
	// Applying reflective twice restores original position and momentum
	// (spec.md S8 "Boundary policy idempotence").
	p := &species.Particle{Position: [3]float64{0.3, 0, 0}, Momentum: [3]float64{1.5, 0, 0}}
	orig := *p
	r := Reflective{}
	r.Apply(1, p, 0, 1, 1.0)
	r.Apply(1, p, 0, 1, 1.0)
	if math.Abs(p.Position[0]-orig.Position[0]) > 1e-12 || math.Abs(p.Momentum[0]-orig.Momentum[0]) > 1e-12 {
		t.Fatalf("double reflective = %+v, want original %+v", p, orig)
	}
}

func TestReflectiveMirrorsAboutFace(t *testing.T) {
	p := &species.Particle{Position: [3]float64{0.8, 0, 0}, Momentum: [3]float64{2, 0, 0}}
	Reflective{}.Apply(1, p, 0, 1, 1.0)
	if got := p.Position[0]; math.Abs(got-1.2) > 1e-12 {
		t.Fatalf("mirrored position = %v, want 1.2", got)
	}
	if p.Momentum[0] != -2 {
		t.Fatalf("mirrored momentum = %v, want -2", p.Momentum[0])
	}
}

func TestStopClampsAndZeroesMomentum(t *testing.T) {
	p := &species.Particle{Position: [3]float64{1.3, 2, 3}, Momentum: [3]float64{5, 6, 7}}
	Stop{}.Apply(1, p, 0, 1, 1.0)
	if p.Position[0] != 1.0 {
		t.Fatalf("Position[0] = %v, want 1.0", p.Position[0])
	}
	if p.Momentum != ([3]float64{}) {
		t.Fatalf("Momentum = %v, want zero", p.Momentum)
	}
}

func TestRemoveAccountsEnergyAndCharge(t *testing.T) {
	p := &species.Particle{Weight: 2, Momentum: [3]float64{0, 0, 0}}
	o := Remove{}.Apply(1, p, 0, 1, 1.0)
	if o.Kept {
		t.Fatalf("Remove outcome should not be Kept")
	}
	if o.ChargeRemoved != 2 {
		t.Fatalf("ChargeRemoved = %v, want 2", o.ChargeRemoved)
	}
	if o.IsPhotonEnergy {
		t.Fatalf("massive particle should not post to photon-energy counter")
	}
}

func TestRemovePhotonEnergyGoesToPhotonCounter(t *testing.T) {
	p := &species.Particle{Weight: 1, Momentum: [3]float64{3, 4, 0}}
	o := Remove{}.Apply(0, p, 0, 1, 1.0)
	if !o.IsPhotonEnergy {
		t.Fatalf("massless particle removal should post to photon-energy counter")
	}
	if math.Abs(o.EnergyRemoved-5) > 1e-9 {
		t.Fatalf("photon energy = %v, want 5", o.EnergyRemoved)
	}
}

func TestDispatcherSkipsInteriorFaces(t *testing.T) {
	bcs := [][2]config.ParticlePolicy{{config.PolicyRemove, config.PolicyRemove}}
	d := NewDispatcher(1, bcs, 1.0)
	p := &species.Particle{Weight: 1}
	o := d.Apply(1, p, 0, 1, 1.0, false) // not a global boundary
	if !o.Kept {
		t.Fatalf("interior-face departure must not trigger the boundary policy")
	}
}

func TestValidityRuleRejectsMismatch(t *testing.T) {
	particleBC := [][2]config.ParticlePolicy{{config.PolicyPeriodic, config.PolicyRemove}}
	emBC := [][2]config.EMBoundary{{config.EMPeriodic, config.EMSilverMuller}}
	if err := ValidateAgainstEMBoundary("e", false, particleBC, emBC); err == nil {
		t.Fatalf("expected validity-rule rejection for periodic/remove mismatch")
	}
}

func TestValidityRuleAllowsTrackedMismatch(t *testing.T) {
	particleBC := [][2]config.ParticlePolicy{{config.PolicyPeriodic, config.PolicyRemove}}
	emBC := [][2]config.EMBoundary{{config.EMPeriodic, config.EMSilverMuller}}
	if err := ValidateAgainstEMBoundary("e", true, particleBC, emBC); err != nil {
		t.Fatalf("tracked species should bypass the validity rule, got %v", err)
	}
}
