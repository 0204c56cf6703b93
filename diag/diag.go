// Package diag implements the run_all_diags (C4) plug-in contract of
// spec.md §1: OpenPMD/HDF5 diagnostic writers are an explicit external
// collaborator out of scope, so this package only carries the in-core
// accounting the engine itself is responsible for (lost-particle energy
// and charge, per-species kinetic energy) and a Sink interface a real
// writer would implement against.
package diag

import "github.com/notargets/pic/patch"

// Snapshot is what run_all_diags has available at one step: every patch
// this rank owns plus the boundary loss counters spec.md §4.2 tracks
// (LostCharge is removed weight times species charge). The moving
// window's own lost-particle counters are not part of the snapshot.
type Snapshot struct {
	Step         int
	Time         float64
	Patches      []*patch.Patch
	LostEnergy   float64
	LostCharge   float64
	PhotonEnergy float64
}

// Sink is the run_all_diags collaborator contract: given a step's
// snapshot, persist whatever it wants. NoSink is the default, matching
// a deck that configures no diagnostic output.
type Sink interface {
	Write(s Snapshot) error
}

type NoSink struct{}

func (NoSink) Write(Snapshot) error { return nil }

// EnergyChargeAccumulator is a minimal in-memory Sink: it keeps a
// running series of total kinetic energy and total charge per step, the
// smallest useful diagnostic for the conservation property tests
// spec.md §8 calls for without taking on an OpenPMD writer's scope.
type EnergyChargeAccumulator struct {
	Steps         []int
	KineticEnergy []float64
	Charge        []float64
}

func (a *EnergyChargeAccumulator) Write(s Snapshot) error {
	var ke, q float64
	for _, p := range s.Patches {
		for _, c := range p.Species {
			ke += c.TotalKineticEnergy()
			for _, part := range c.P {
				q += part.Weight * c.Species.Charge
			}
		}
	}
	a.Steps = append(a.Steps, s.Step)
	a.KineticEnergy = append(a.KineticEnergy, ke)
	a.Charge = append(a.Charge, q)
	return nil
}
