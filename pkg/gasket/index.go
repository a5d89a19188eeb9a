package gasket

import "math"

// index is the tolerance fallback for duplicate detection. Circles are
// bucketed by their floating-point center on a grid of the tolerance size,
// so a lookup only inspects the 3×3 neighbourhood of the probe's cell.
type index struct {
	tol   float64
	cells map[cell][]entry
}

type cell struct{ x, y int64 }

type entry struct {
	k float64
	z complex128
	c *Circle
}

func newIndex(tol float64) *index {
	return &index{tol: tol, cells: make(map[cell][]entry)}
}

func (ix *index) cellOf(z complex128) cell {
	return cell{
		x: int64(math.Floor(real(z) / ix.tol)),
		y: int64(math.Floor(imag(z) / ix.tol)),
	}
}

func (ix *index) add(c *Circle) {
	k, z := c.Float()
	at := ix.cellOf(z)
	ix.cells[at] = append(ix.cells[at], entry{k: k, z: z, c: c})
}

// find returns a stored circle whose curvature and center both lie within
// the tolerance of (k, z). Curvature tolerance scales with |k|.
func (ix *index) find(k float64, z complex128) *Circle {
	at := ix.cellOf(z)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, e := range ix.cells[cell{at.x + dx, at.y + dy}] {
				if near(e.k, e.z, k, z, ix.tol) {
					return e.c
				}
			}
		}
	}
	return nil
}

func near(k1 float64, z1 complex128, k2 float64, z2 complex128, tol float64) bool {
	if math.Abs(k1-k2) > tol*math.Max(1, math.Abs(k1)) {
		return false
	}
	return math.Abs(real(z1)-real(z2)) <= tol && math.Abs(imag(z1)-imag(z2)) <= tol
}
