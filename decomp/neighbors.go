package decomp

// FaceNeighbor returns the global patch index adjacent to p across the
// given axis/side, or ok=false if p is on the global boundary and side is
// not periodic. When periodic, the index wraps to the opposite edge of
// the patch grid (spec.md S4.6 "position wrapped into the global
// domain" describes the particle-level analogue; here it is the
// patch-adjacency analogue used to route ghost exchange).
func (d *Decomposition) FaceNeighbor(p, axis, side int, periodic bool) (neighbor int, ok bool) {
	dims := d.Curve.Dims()
	coord := append([]int(nil), d.Curve.Decode(p)...)
	delta := 1
	if side == 0 {
		delta = -1
	}
	coord[axis] += delta
	if coord[axis] < 0 || coord[axis] >= dims[axis] {
		if !periodic {
			return 0, false
		}
		coord[axis] = ((coord[axis] % dims[axis]) + dims[axis]) % dims[axis]
	}
	return d.Curve.Encode(coord), true
}

// IsGlobalBoundary reports whether patch p's face (axis, side) lies on
// the global simulation boundary, i.e. spec.md S3's isXmin/isXmax family
// of per-patch flags.
func (d *Decomposition) IsGlobalBoundary(p, axis, side int) bool {
	dims := d.Curve.Dims()
	coord := d.Curve.Decode(p)
	if side == 0 {
		return coord[axis] == 0
	}
	return coord[axis] == dims[axis]-1
}
