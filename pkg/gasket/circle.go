package gasket

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"math/cmplx"

	"github.com/matzehuels/gasket/pkg/descartes"
	"github.com/matzehuels/gasket/pkg/exact"
)

// CanonicalKey identifies a circle by its exact curvature and center.
type CanonicalKey string

// CanonicalKeyOf returns the hex SHA-256 of the formatted curvature and
// center parts joined by "_". Algebraic values format in their sorted
// normal form, so equal circles always share a key.
func CanonicalKeyOf(k exact.Number, z exact.Complex) CanonicalKey {
	s := exact.Format(k) + "_" + exact.Format(z.Re) + "_" + exact.Format(z.Im)
	sum := sha256.Sum256([]byte(s))
	return CanonicalKey(hex.EncodeToString(sum[:]))
}

// Short returns the first 12 hex digits of the key, for display.
func (k CanonicalKey) Short() string {
	if len(k) <= 12 {
		return string(k)
	}
	return string(k[:12])
}

// Circle is one circle of a gasket.
//
// ParentKeys holds the keys of the three circles it was generated from
// (empty for seeds). TangentKeys starts with the circles it touches when
// accepted and grows as later circles touching it are accepted.
//
// ID, ParentIDs and TangentIDs belong to the persistence layer; the
// generator never sets them.
type Circle struct {
	Curvature  exact.Number
	Center     exact.Complex
	Generation uint32
	Key        CanonicalKey

	ParentKeys  []CanonicalKey
	TangentKeys []CanonicalKey

	ID         *int64
	ParentIDs  []int64
	TangentIDs []int64
}

// NewCircle returns a circle with its canonical key filled in.
func NewCircle(k exact.Number, z exact.Complex, generation uint32) *Circle {
	return &Circle{
		Curvature:  k,
		Center:     z,
		Generation: generation,
		Key:        CanonicalKeyOf(k, z),
	}
}

// Radius returns the signed radius 1/k. It is negative for an enclosing
// circle.
func (c *Circle) Radius() exact.Number {
	r, err := c.Curvature.Inv()
	if err != nil {
		return exact.Number{}
	}
	return r
}

// IsEnclosing reports whether the circle has negative curvature.
func (c *Circle) IsEnclosing() bool { return c.Curvature.Sign() < 0 }

// Float returns curvature and center as floating-point values.
func (c *Circle) Float() (k float64, z complex128) {
	return c.Curvature.Float64(), c.Center.Complex128()
}

func (c *Circle) descartes() descartes.Circle {
	return descartes.Circle{Curvature: c.Curvature, Center: c.Center}
}

// tangentDistance returns |1/ka ± 1/kb|: the sum of radii for external
// tangency and their difference when one circle encloses the other.
func tangentDistance(a, b *Circle) (exact.Number, error) {
	ra, err := a.Curvature.Inv()
	if err != nil {
		return exact.Number{}, err
	}
	rb, err := b.Curvature.Inv()
	if err != nil {
		return exact.Number{}, err
	}
	return ra.Add(rb).Abs(), nil
}

// VerifyTangency reports whether a and b are tangent. The squared center
// distance is first compared exactly with the squared radius sum (or
// difference); if that fails, the comparison is repeated in floating point
// with relative tolerance tol.
func VerifyTangency(a, b *Circle, tol float64) bool {
	d, err := tangentDistance(a, b)
	if err != nil {
		return false
	}
	dz := a.Center.Sub(b.Center)
	if dz.Abs2().Equal(d.Mul(d)) {
		return true
	}
	want := d.Float64()
	got := cmplx.Abs(dz.Complex128())
	return math.Abs(got-want) <= tol*math.Max(1, want)
}
