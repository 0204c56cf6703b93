package pbc

import (
	"github.com/notargets/pic/config"
	"github.com/notargets/pic/errs"
	"github.com/notargets/pic/species"
)

// FaceCounters accumulates the per-face diagnostics spec.md S4.2's
// remove policy feeds: removed energy/charge, tracked separately for
// photons.
type FaceCounters struct {
	RemovedEnergy       float64
	RemovedCharge       float64
	RemovedPhotonEnergy float64
}

func (c *FaceCounters) absorb(o Outcome) {
	if o.Kept {
		return
	}
	if o.IsPhotonEnergy {
		c.RemovedPhotonEnergy += o.EnergyRemoved
	} else {
		c.RemovedEnergy += o.EnergyRemoved
	}
	c.RemovedCharge += o.ChargeRemoved
}

// Dispatcher is the per-species 2D (axis, side) policy table of spec.md
// S4.2, compiled once at Patch construction.
type Dispatcher struct {
	nDim     int
	policies [][2]Policy
	counters [][2]FaceCounters
}

// NewDispatcher compiles a deck's per-axis, per-side ParticlePolicy
// values into stored Policy capabilities.
func NewDispatcher(nDim int, bcs [][2]config.ParticlePolicy, thermalTemperature float64) *Dispatcher {
	d := &Dispatcher{
		nDim:     nDim,
		policies: make([][2]Policy, nDim),
		counters: make([][2]FaceCounters, nDim),
	}
	for axis := 0; axis < nDim; axis++ {
		for side := 0; side < 2; side++ {
			d.policies[axis][side] = compile(bcs[axis][side], thermalTemperature)
		}
	}
	return d
}

func compile(p config.ParticlePolicy, thermalTemperature float64) Policy {
	switch p {
	case config.PolicyReflective:
		return Reflective{}
	case config.PolicyRemove:
		return Remove{}
	case config.PolicyStop:
		return Stop{}
	case config.PolicyThermalize:
		return NewThermalize(thermalTemperature)
	case config.PolicyPeriodic:
		return Periodic{}
	default:
		return None{}
	}
}

// PolicyAt returns the compiled policy for (axis, side).
func (d *Dispatcher) PolicyAt(axis, side int) Policy { return d.policies[axis][side] }

// IsPeriodic reports whether (axis, side) is configured periodic, so the
// caller knows to route the particle through cross-patch exchange
// instead of calling Apply (spec.md S4.2: "periodic: handled not
// locally").
func (d *Dispatcher) IsPeriodic(axis, side int) bool {
	_, ok := d.policies[axis][side].(Periodic)
	return ok
}

// Apply runs the compiled policy for (axis, side) against p and folds
// the outcome into that face's counters. isGlobalBoundary must be true
// for reflective/stop/thermalize/remove to have any effect (spec.md
// S4.2 edge case: these apply only on patches whose face is the global
// boundary; interior-patch departures are not boundary events).
func (d *Dispatcher) Apply(mass float64, p *species.Particle, axis, side int, facePos float64, isGlobalBoundary bool) Outcome {
	if !isGlobalBoundary {
		return Outcome{Kept: true}
	}
	pol := d.policies[axis][side]
	o := pol.Apply(mass, p, axis, side, facePos)
	d.counters[axis][side].absorb(o)
	return o
}

func (d *Dispatcher) Counters(axis, side int) FaceCounters { return d.counters[axis][side] }

// ValidateAgainstEMBoundary re-checks spec.md S4.2's validity rule
// outside the full deck-validation path (e.g. after a checkpoint restore
// under a different deck, or in unit tests exercising Dispatcher in
// isolation): for an untracked species, the EM boundary and the particle
// boundary on the same axis must agree on whether it is periodic.
// config.DeckParams.Validate performs the equivalent check at setup;
// this is the same rule applied directly to a compiled Dispatcher.
func ValidateAgainstEMBoundary(name string, tracked bool, particleBC [][2]config.ParticlePolicy, emBC [][2]config.EMBoundary) error {
	for axis := range particleBC {
		for side := 0; side < 2; side++ {
			pol := particleBC[axis][side]
			em := emBC[axis][side]
			if tracked {
				continue
			}
			if em == config.EMPeriodic && pol != config.PolicyPeriodic {
				return errs.Config("species %q: EM boundary on axis %d side %d is periodic but particle boundary is %q",
					name, axis, side, pol)
			}
			if em != config.EMPeriodic && pol == config.PolicyPeriodic {
				return errs.Config("species %q: particle boundary on axis %d side %d is periodic but EM boundary is %q",
					name, axis, side, em)
			}
		}
	}
	return nil
}
