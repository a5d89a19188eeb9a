// Package seed places the starting circles of a gasket from their
// curvatures alone.
//
// The first circle sits at the origin and the second on the positive real
// axis. The third is fixed by the two tangency distances and kept in the
// upper half plane. A fourth curvature, if given, is matched against the
// two Descartes solutions of the first three.
//
// Placement is exact whenever the curvatures are: rational curvatures
// give rational radii, so the only irrationality introduced is the square
// root in the third circle's height.
package seed

import (
	"math"

	"github.com/matzehuels/gasket/pkg/descartes"
	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

// DefaultTolerance is the curvature tolerance used to match the fourth
// circle when no exact match exists.
const DefaultTolerance = 1e-6

// Option configures [Place].
type Option func(*options)

type options struct {
	tolerance float64
}

// WithTolerance sets the curvature tolerance for matching the fourth circle.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// Place positions three or four mutually tangent circles with the given
// curvatures, in input order.
//
// At most one curvature may be negative (the enclosing circle). Zero
// curvatures fail with DIVISION_BY_ZERO, configurations that admit no
// tangent placement with NO_TANGENT_PLACEMENT, and a fourth curvature that
// matches neither Descartes solution with INVALID_CONFIGURATION.
func Place(curvatures []exact.Number, opts ...Option) ([]descartes.Circle, error) {
	o := options{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	if err := errors.ValidateSeedCount(len(curvatures)); err != nil {
		return nil, err
	}
	negatives := 0
	for i, k := range curvatures {
		if k.IsZero() {
			return nil, errors.New(errors.ErrCodeDivisionByZero, "seed curvature %d is zero", i+1)
		}
		if k.Sign() < 0 {
			negatives++
		}
	}
	if negatives > 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"at most one seed curvature may be negative, got %d", negatives)
	}

	k1, k2, k3 := curvatures[0], curvatures[1], curvatures[2]
	origin := exact.C(exact.Int(0), exact.Int(0))

	d12 := TangentDistance(k1, k2)
	if d12.Sign() <= 0 {
		return nil, errors.New(errors.ErrCodeNoTangentPlacement,
			"circles with curvatures %s and %s cannot be tangent", k1, k2)
	}
	second := exact.C(d12, exact.Int(0))

	third, err := thirdCenter(k1, k2, k3, d12)
	if err != nil {
		return nil, err
	}

	placed := []descartes.Circle{
		{Curvature: k1, Center: origin},
		{Curvature: k2, Center: second},
		{Curvature: k3, Center: third},
	}
	if len(curvatures) == 3 {
		return placed, nil
	}

	fourth, err := matchFourth(placed, curvatures[3], o.tolerance)
	if err != nil {
		return nil, err
	}
	return append(placed, fourth), nil
}

// TangentDistance returns the distance between the centers of two tangent
// circles with curvatures k1 and k2. A negative curvature marks an
// enclosing circle, which is internally tangent to the other.
func TangentDistance(k1, k2 exact.Number) exact.Number {
	r1, r2 := radius(k1), radius(k2)
	switch {
	case k1.Sign() > 0 && k2.Sign() > 0:
		return r1.Add(r2)
	case k1.Sign() < 0 && k2.Sign() > 0:
		return r1.Sub(r2)
	case k1.Sign() > 0 && k2.Sign() < 0:
		return r2.Sub(r1)
	default:
		return r1.Sub(r2).Abs()
	}
}

// radius returns |1/k|, or 1 for a zero curvature.
func radius(k exact.Number) exact.Number {
	r, err := k.Abs().Inv()
	if err != nil {
		return exact.Int(1)
	}
	return r
}

// thirdCenter intersects the circles of radius d13 around the origin and
// d23 around (d12, 0), keeping the intersection with y >= 0.
func thirdCenter(k1, k2, k3, d12 exact.Number) (exact.Complex, error) {
	d13 := TangentDistance(k1, k3)
	d23 := TangentDistance(k2, k3)
	if d13.Sign() < 0 || d23.Sign() < 0 {
		return exact.Complex{}, errors.New(errors.ErrCodeNoTangentPlacement,
			"circle with curvature %s cannot be tangent to both %s and %s", k3, k1, k2)
	}

	sq13, sq23 := d13.Mul(d13), d23.Mul(d23)
	x, err := sq13.Sub(sq23).Add(d12.Mul(d12)).Div(d12.Add(d12))
	if err != nil {
		return exact.Complex{}, errors.Wrap(errors.ErrCodeNoTangentPlacement, err, "place third circle")
	}
	y2 := sq13.Sub(x.Mul(x))
	if y2.Sign() < 0 {
		return exact.Complex{}, errors.New(errors.ErrCodeNoTangentPlacement,
			"curvatures (%s, %s, %s) admit no tangent placement", k1, k2, k3)
	}
	y, err := y2.Sqrt()
	if err != nil {
		return exact.Complex{}, err
	}
	return exact.C(x, y), nil
}

// matchFourth solves for the circles tangent to the first three and keeps
// the one with curvature k4. An exact match wins over a tolerance match;
// among equal candidates the upper one is kept.
func matchFourth(placed []descartes.Circle, k4 exact.Number, tol float64) (descartes.Circle, error) {
	res, err := descartes.Solve(placed[0], placed[1], placed[2])
	if err != nil {
		return descartes.Circle{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, err,
			"solve for fourth circle")
	}

	var (
		best     descartes.Circle
		found    bool
		exactHit bool
	)
	for _, sol := range res.Branches() {
		if !sol.Valid() {
			continue
		}
		isExact := sol.Curvature.Equal(k4)
		if !isExact && math.Abs(sol.Curvature.Float64()-k4.Float64()) >= tol {
			continue
		}
		cand := descartes.Circle{Curvature: k4, Center: sol.Center}
		switch {
		case !found, isExact && !exactHit:
			best, found, exactHit = cand, true, isExact
		case isExact == exactHit && cand.Center.Im.Cmp(best.Center.Im) > 0:
			best = cand
		}
	}
	if !found {
		return descartes.Circle{}, errors.New(errors.ErrCodeInvalidConfiguration,
			"curvature %s is not tangent to (%s, %s, %s); expected %s or %s",
			k4, placed[0].Curvature, placed[1].Curvature, placed[2].Curvature,
			res.Plus.Curvature, res.Minus.Curvature)
	}
	return best, nil
}
