// Package species implements the particle data model of spec.md S3: a
// real-valued position in the global frame, three momentum components
// regardless of nDim_field, nonnegative weight, and an implicit species
// id via the owning container. Storage and removal follow the
// slice-of-structs-with-swap-remove pattern used for particle
// collections across the pack (e.g. gibiansky-fluid-sim's
// SliceParticleList.Remove): swap the removed element with the last and
// shrink, rather than shifting the tail.
package species

import "math"

// Particle is one macro-particle. Position and Momentum are always
// 3-vectors; unused components for lower-dimensional geometries are held
// at zero by convention (spec.md S3 "three momentum components
// regardless of nDim_field").
type Particle struct {
	Position [3]float64
	Momentum [3]float64
	Weight   float64
	// TrackID is non-zero only for tracked species (spec.md S4.2
	// validity rule references "a species that is not tracked").
	TrackID uint64
}

// Config is the runtime species descriptor attached to a patch's
// container (spec.md S3 "for each species: a particle container ...").
// It is distinct from config.SpeciesConfig (the deck record): Config is
// resolved once at setup (mass/charge fixed, boundary policies already
// compiled into pbc.Policy values) and carried per-patch thereafter.
type Config struct {
	Name    string
	Mass    float64 // 0 => photon (massless)
	Charge  float64 // per unit weight; sign carried for pairs
	Tracked bool
}

func (c Config) IsPhoton() bool { return c.Mass == 0 }

// Container holds every live particle of one species on one patch.
type Container struct {
	Species Config
	P       []Particle
}

func NewContainer(cfg Config, capacity int) *Container {
	return &Container{Species: cfg, P: make([]Particle, 0, capacity)}
}

func (c *Container) Add(p Particle) { c.P = append(c.P, p) }

func (c *Container) Len() int { return len(c.P) }

// RemoveAt deletes the particle at index i via swap-with-last, the same
// O(1) removal the pack's SliceParticleList.Remove uses, at the cost of
// not preserving particle order (harmless here: order is re-established
// every step by SortByCell).
func (c *Container) RemoveAt(i int) {
	last := len(c.P) - 1
	c.P[i] = c.P[last]
	c.P = c.P[:last]
}

// TotalKineticEnergy sums relativistic kinetic energy (γ-1)*m*c^2 per
// unit weight, weighted, in code units where c=1. Used by the
// lost_particle_energy / removal-policy accounting of spec.md S4.2 and
// by the energy-conservation property tests of spec.md S8.
func (c *Container) TotalKineticEnergy() float64 {
	var sum float64
	for _, p := range c.P {
		sum += p.Weight * kineticEnergy(c.Species.Mass, p.Momentum)
	}
	return sum
}

func kineticEnergy(mass float64, mom [3]float64) float64 {
	p2 := mom[0]*mom[0] + mom[1]*mom[1] + mom[2]*mom[2]
	if mass == 0 {
		// Photon: E = |p| (c=1 code units).
		return math.Sqrt(p2)
	}
	gamma := math.Sqrt(1 + p2/(mass*mass))
	return (gamma - 1) * mass
}
