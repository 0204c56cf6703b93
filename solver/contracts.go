// Package solver holds the plug-in contracts spec.md S1 names as external
// collaborators (the per-particle interpolation/push/deposition kernels
// and the field-solver stencil), plus the default implementations the
// engine ships so C1/C5/C9 run standalone. A caller may substitute any
// of these with their own implementation of the same interface.
package solver

import "github.com/notargets/pic/species"

// Grid describes the local patch geometry an Interpolator, Pusher, or
// Depositor needs: cell size, the physical coordinate of the first
// interior primal node, its local ghost offset, and the dimensionality.
type Grid struct {
	CellSize  [3]float64
	Origin    [3]float64 // physical position of local coordinate GhostOffset
	GhostOffset [3]int   // local coordinate of Origin (i.e. the ghost thickness per axis)
	NDim      int
}

// FieldAt is the field sample an Interpolator produces for one particle.
type FieldAt struct {
	E [3]float64
	B [3]float64
}

// FieldSource gives an Interpolator read access to a patch's E/B slabs
// without importing package fields (avoids a solver<->fields import
// cycle; patch wires the two together).
type FieldSource interface {
	// At returns the field-component value at a local integer coordinate
	// on the named component's staggered grid. comp is one of "Ex","Ey",
	// "Ez","Bx","By","Bz".
	At(comp string, coord []int) float64
}

// CurrentSink gives a Depositor write access to a patch's J/rho slabs.
type CurrentSink interface {
	AddJ(axis int, coord []int, v float64)
	AddRho(coord []int, v float64)
}

// Interpolator computes (E,B) at a particle position by shape-function
// weighting of surrounding grid nodes (spec.md S1 interpolate_fields,
// S4.1 "via shape function of given order").
type Interpolator interface {
	Interpolate(g Grid, src FieldSource, pos [3]float64) FieldAt
}

// Pusher advances one particle's momentum then position over dt (spec.md
// S4.1 push). Implementations must be able to special-case mass==0
// (photon, force-free motion).
type Pusher interface {
	Push(mass, charge, dt float64, p *species.Particle, f FieldAt)
}

// Depositor accumulates one particle's contribution to J and rho onto
// the primal grid, charge-conserving across the macro-particle's shape
// (spec.md S4.1 deposit; "writes into ghost layer when particle shape
// spills over").
type Depositor interface {
	Deposit(g Grid, sink CurrentSink, dt, charge float64, oldPos, newPos [3]float64, weight float64)
}

// MaxwellSolver advances E and B over one timestep on the Cartesian
// Mirror Domain's assembled block (spec.md S1 Out of scope: "the numeric
// field solver stencils themselves"; S5 C5 solveMaxwell hook).
type MaxwellSolver interface {
	Advance(g Grid, dims []int, ghost []int, dt float64, E, B, J [3][]float64)
}
