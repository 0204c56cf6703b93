// Package qed implements the plug-in contract for the "optional QED
// processes" spec.md §1 names (nonlinear Compton radiation reaction,
// multiphoton Breit-Wheeler pair production): per-patch, per-species
// local operators applied the same way apply_collisions is (spec.md
// S4.4/S4.9). The lookup tables these processes sample from are an
// explicit external collaborator (spec.md §1 "the specific QED
// lookup-table generation"), so this package carries only the contract
// a real table-backed implementation would satisfy, plus a no-op
// default so a deck that enables no QED process still runs.
package qed

import "github.com/notargets/pic/patch"

// Tables is the externally supplied rate-lookup contract: given the
// quantum nonlinearity parameter chi for a particle's instantaneous
// momentum and local field, it returns the photon-emission rate (for
// radiation reaction) or the pair-production rate (for Breit-Wheeler),
// per unit proper time. The core never computes these rates itself —
// it only calls into whatever Tables a deck configures.
type Tables interface {
	EmissionRate(chi float64) float64
	PairProductionRate(chi float64) float64
}

// Process is the per-patch local operator spec.md S4.4/S4.9 applies
// alongside apply_collisions: it may emit photons (reducing the parent
// particle's momentum and adding new photon macro-particles to the
// patch's photon species container) or convert high-energy photons into
// electron-positron pairs.
type Process interface {
	Apply(p *patch.Patch, dt float64)
}

// NoProcess is the default: a deck that configures no QED process runs
// with this plug-in as a true no-op, matching vectorpatch's
// NoAntenna/NoCollisions/NoExternalFields pattern.
type NoProcess struct{}

func (NoProcess) Apply(*patch.Patch, float64) {}
