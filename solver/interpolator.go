package solver

// ShapeInterpolator is the default Interpolator: trilinear (or, with
// Order set to ShapeQuadratic/ShapeNGP, the matching) shape-function
// weighting of the nodes surrounding a particle's position, evaluated
// independently per field component against that component's own
// staggered (Yee) grid (spec.md S3 primal/dual staggering).
type ShapeInterpolator struct {
	Order ShapeOrder
}

func NewShapeInterpolator() ShapeInterpolator { return ShapeInterpolator{Order: defaultOrder} }

var components = [6]string{"Ex", "Ey", "Ez", "Bx", "By", "Bz"}

// staggerOffset gives the half-cell Yee offset (0 or 0.5) of comp along
// each axis: E components are dual on their own axis and primal on the
// other two; B components are primal on their own axis and dual on the
// other two (standard Yee staggering, spec.md S3).
func staggerOffset(comp string) [3]float64 {
	isE := comp[0] == 'E'
	axis := map[byte]int{'x': 0, 'y': 1, 'z': 2}[comp[1]]
	off := [3]float64{}
	for a := 0; a < 3; a++ {
		onOwnAxis := a == axis
		if isE == onOwnAxis {
			off[a] = 0.5
		}
	}
	return off
}

func (s ShapeInterpolator) Interpolate(g Grid, src FieldSource, pos [3]float64) FieldAt {
	var out FieldAt
	for ci, comp := range components {
		off := staggerOffset(comp)
		val := s.sampleComponent(g, src, comp, off, pos)
		if ci < 3 {
			out.E[ci] = val
		} else {
			out.B[ci-3] = val
		}
	}
	return out
}

func (s ShapeInterpolator) sampleComponent(g Grid, src FieldSource, comp string, off [3]float64, pos [3]float64) float64 {
	nd := g.NDim
	if nd == 0 {
		nd = 3
	}
	base := make([]int, nd)
	frac := make([]float64, nd)
	lo, wfn := make([][2]int, nd), make([]func(int) float64, nd)
	for a := 0; a < nd; a++ {
		cell := g.CellSize[a]
		if cell == 0 {
			cell = 1
		}
		x := (pos[a]-g.Origin[a])/cell - off[a]
		node := int(x)
		dx := x - float64(node)
		l, h, w := weight(s.Order, dx)
		base[a] = node
		frac[a] = dx
		lo[a] = [2]int{l, h}
		wfn[a] = w
	}

	var total float64
	var acc float64
	var rec func(a int, coord []int, wprod float64)
	rec = func(a int, coord []int, wprod float64) {
		if a == nd {
			full := make([]int, 3)
			for i := 0; i < 3; i++ {
				if i < nd {
					full[i] = coord[i]
				}
			}
			acc += wprod * src.At(comp, full)
			total += wprod
			return
		}
		for offset := lo[a][0]; offset <= lo[a][1]; offset++ {
			c := append(append([]int{}, coord...), g.GhostOffset[a]+base[a]+offset)
			rec(a+1, c, wprod*wfn[a](offset))
		}
	}
	rec(0, nil, 1)
	if total == 0 {
		return 0
	}
	return acc / total
}
