package solver

import "math"

// ShapeOrder selects the macro-particle shape function spec.md S4.1
// leaves as a configured interpolation order (NGP=0, linear=1,
// quadratic=2).
type ShapeOrder int

const (
	ShapeNGP ShapeOrder = iota
	ShapeLinear
	ShapeQuadratic
)

// weight returns the stencil half-width and the weight function for
// order, evaluated at the fractional cell offset dx (in units of one
// cell, signed, 0 meaning exactly on the node).
func weight(order ShapeOrder, dx float64) (lo, hi int, w func(offset int) float64) {
	switch order {
	case ShapeNGP:
		return 0, 0, func(int) float64 { return 1 }
	case ShapeQuadratic:
		return -1, 1, func(offset int) float64 {
			d := dx - float64(offset)
			ad := math.Abs(d)
			switch {
			case ad <= 0.5:
				return 0.75 - ad*ad
			case ad <= 1.5:
				t := 1.5 - ad
				return 0.5 * t * t
			default:
				return 0
			}
		}
	default: // ShapeLinear
		return 0, 1, func(offset int) float64 {
			d := dx - float64(offset)
			ad := math.Abs(d)
			if ad >= 1 {
				return 0
			}
			return 1 - ad
		}
	}
}

// ShapeInterpolator uses this shape function, at the linear (order-1)
// order unless ShapeOrder selects another; ZigZagDepositor applies its
// own linear weight (linearWeight) and has no order setting. Order 1 is
// the default the engine ships, matching the Esirkepov reference
// scheme's usual companion interpolation order.
const defaultOrder = ShapeLinear
