package vectorpatch

import (
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/pic/mirror"
)

// SolvePoisson is spec.md S4.4/S4.5's initialization-only electrostatic
// solve: a conjugate-gradient iteration over the assembled Mirror Domain
// block that gives a consistent Ex (1D) or Ex,Ey (2D/3D) from the
// deck's initial charge density, the way gocfd's utils.DOK/CSR wrapper
// assembles and solves a sparse operator over a structured grid.
func (vp *VectorPatch) SolvePoisson(dom *mirror.Domain, blk *mirror.Block, eps0, tol float64, maxIter int) error {
	nd := len(blk.Dims)
	n := 1
	for _, d := range blk.Dims {
		n *= d
	}
	lap := assembleLaplacian(blk.Dims)
	rhs := mat.NewVecDense(n, nil)
	for i, r := range blk.Rho {
		rhs.SetVec(i, -r/eps0)
	}
	phi := mat.NewVecDense(n, nil)
	if err := conjugateGradient(lap, rhs, phi, tol, maxIter); err != nil {
		return err
	}
	writeGradient(blk, phi, nd)
	return nil
}

// assembleLaplacian builds the standard 5/7-point finite-difference
// Laplacian (unit cell spacing; SolvePoisson's caller rescales via the
// rhs) over a flat row-major grid of dims, Dirichlet (zero) outside the
// block — the structured-grid analogue of gocfd's DOK-assembled
// operators (utils/sparse.go).
func assembleLaplacian(dims []int) *sparse.CSR {
	nd := len(dims)
	n := 1
	for _, d := range dims {
		n *= d
	}
	strides := make([]int, nd)
	stride := 1
	for a := nd - 1; a >= 0; a-- {
		strides[a] = stride
		stride *= dims[a]
	}
	dok := sparse.NewDOK(n, n)
	coord := make([]int, nd)
	var rec func(a, idx int)
	rec = func(a, idx int) {
		if a == nd {
			diag := 0.0
			for ax := 0; ax < nd; ax++ {
				for _, delta := range [2]int{-1, 1} {
					nb := coord[ax] + delta
					if nb < 0 || nb >= dims[ax] {
						diag -= 1 // Dirichlet ghost contributes to the diagonal only
						continue
					}
					nidx := idx + delta*strides[ax]
					dok.Set(idx, nidx, 1)
					diag -= 1
				}
			}
			dok.Set(idx, idx, diag)
			return
		}
		for c := 0; c < dims[a]; c++ {
			coord[a] = c
			rec(a+1, idx+c*strides[a])
		}
	}
	rec(0, 0)
	return dok.ToCSR()
}

// conjugateGradient solves A x = b for symmetric positive-(semi)definite
// A; SolvePoisson passes the package constants poissonTol and
// poissonMaxIter, which no deck field overrides.
func conjugateGradient(a *sparse.CSR, b, x *mat.VecDense, tol float64, maxIter int) error {
	n := b.Len()
	r := mat.NewVecDense(n, nil)
	ax := mat.NewVecDense(n, nil)
	ax.MulVec(a, x)
	r.SubVec(b, ax)
	p := mat.NewVecDense(n, nil)
	p.CloneFromVec(r)
	rsOld := mat.Dot(r, r)
	if rsOld < tol*tol {
		return nil
	}
	ap := mat.NewVecDense(n, nil)
	for iter := 0; iter < maxIter; iter++ {
		ap.MulVec(a, p)
		denom := mat.Dot(p, ap)
		if math.Abs(denom) < 1e-300 {
			break
		}
		alpha := rsOld / denom
		x.AddScaledVec(x, alpha, p)
		r.AddScaledVec(r, -alpha, ap)
		rsNew := mat.Dot(r, r)
		if math.Sqrt(rsNew) < tol {
			return nil
		}
		p.AddScaledVec(r, rsNew/rsOld, p)
		rsOld = rsNew
	}
	return nil
}

// writeGradient computes E = -grad(phi) by centered difference and
// writes it into Ex (and Ey for nd>1), per spec.md §4.1's "only Ex (1D)
// or Ex,Ey (2D/3D)".
func writeGradient(blk *mirror.Block, phi *mat.VecDense, nd int) {
	strides := make([]int, nd)
	stride := 1
	for a := nd - 1; a >= 0; a-- {
		strides[a] = stride
		stride *= blk.Dims[a]
	}
	n := phi.Len()
	for idx := 0; idx < n; idx++ {
		for axis := 0; axis < nd && axis < 2; axis++ {
			coord := (idx / strides[axis]) % blk.Dims[axis]
			lo, hi := idx, idx
			denom := 2.0
			if coord > 0 {
				lo = idx - strides[axis]
			} else {
				denom = 1
			}
			if coord < blk.Dims[axis]-1 {
				hi = idx + strides[axis]
			} else {
				denom = 1
			}
			blk.E[axis][idx] = -(phi.AtVec(hi) - phi.AtVec(lo)) / denom
		}
	}
}
