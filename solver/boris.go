package solver

import (
	"math"

	"github.com/notargets/pic/species"
)

// BorisPusher is the default relativistic Boris pusher (spec.md S4.1
// push: "relativistic Boris pusher (or user-supplied) advances momenta
// then positions"). Massless species take the straight-line push
// branch instead, since the Boris rotation is undefined for mass==0.
type BorisPusher struct{}

func (BorisPusher) Push(mass, charge, dt float64, p *species.Particle, f FieldAt) {
	if mass == 0 {
		straightLinePush(dt, p)
		return
	}
	borisPush(mass, charge, dt, p, f)
}

func straightLinePush(dt float64, p *species.Particle) {
	pMag := math.Sqrt(p.Momentum[0]*p.Momentum[0] + p.Momentum[1]*p.Momentum[1] + p.Momentum[2]*p.Momentum[2])
	if pMag == 0 {
		return
	}
	for a := 0; a < 3; a++ {
		p.Position[a] += dt * p.Momentum[a] / pMag
	}
}

func borisPush(mass, charge, dt float64, p *species.Particle, f FieldAt) {
	qmdt2 := charge * dt / (2 * mass)

	var uMinus [3]float64
	for a := 0; a < 3; a++ {
		uMinus[a] = p.Momentum[a]/mass + qmdt2*f.E[a]
	}

	gammaMinus := math.Sqrt(1 + uMinus[0]*uMinus[0] + uMinus[1]*uMinus[1] + uMinus[2]*uMinus[2])

	var t [3]float64
	for a := 0; a < 3; a++ {
		t[a] = qmdt2 * f.B[a] / gammaMinus
	}
	t2 := t[0]*t[0] + t[1]*t[1] + t[2]*t[2]
	sFac := 2 / (1 + t2)

	uPrime := cross(uMinus, t)
	for a := 0; a < 3; a++ {
		uPrime[a] += uMinus[a]
	}

	uPlusDelta := cross(uPrime, t)
	var uPlus [3]float64
	for a := 0; a < 3; a++ {
		uPlus[a] = uMinus[a] + sFac*uPlusDelta[a]
	}

	var uNew [3]float64
	for a := 0; a < 3; a++ {
		uNew[a] = uPlus[a] + qmdt2*f.E[a]
	}
	gammaNew := math.Sqrt(1 + uNew[0]*uNew[0] + uNew[1]*uNew[1] + uNew[2]*uNew[2])

	for a := 0; a < 3; a++ {
		p.Momentum[a] = uNew[a] * mass
		p.Position[a] += dt * uNew[a] / gammaNew
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
