// Package descartes solves the Descartes circle problem: given three mutually
// tangent circles, find the two circles tangent to all three.
//
// Curvatures follow the Descartes Circle Theorem
//
//	k4± = k1 + k2 + k3 ± 2·√(k1k2 + k2k3 + k3k1)
//
// and centers follow its complex form (Lagarias, Mallows and Wilks)
//
//	z4± = (k1z1 + k2z2 + k3z3 ± 2·√(k1k2·z1z2 + k2k3·z2z3 + k3k1·z3z1)) / k4±
//
// The sign is correlated: the plus curvature is always paired with the plus
// center. The complex square root has two values; [Solve] picks the one
// whose plus pair is actually tangent to the inputs, so the pairing never
// produces a wrong circle.
//
// All arithmetic is exact (see package exact).
package descartes

import (
	"math"
	"math/cmplx"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

// Circle is a curvature together with a center.
type Circle struct {
	Curvature exact.Number
	Center    exact.Complex
}

// Sign selects a solution branch.
type Sign int

const (
	Plus  Sign = 1
	Minus Sign = -1
)

func (s Sign) String() string {
	if s == Minus {
		return "minus"
	}
	return "plus"
}

// Solution is one branch of the Descartes solution. Err is set when the
// branch is degenerate (zero curvature, i.e. a straight line); Curvature and
// Center are meaningless in that case.
type Solution struct {
	Sign      Sign
	Curvature exact.Number
	Center    exact.Complex
	Err       error
}

// Valid reports whether the branch produced a circle.
func (s Solution) Valid() bool { return s.Err == nil }

// Result holds both branches.
type Result struct {
	Plus  Solution
	Minus Solution
}

// Branches returns the plus and minus branches in that order.
func (r Result) Branches() [2]Solution { return [2]Solution{r.Plus, r.Minus} }

// Discriminant returns k1k2 + k2k3 + k3k1.
func Discriminant(k1, k2, k3 exact.Number) exact.Number {
	return k1.Mul(k2).Add(k2.Mul(k3)).Add(k3.Mul(k1))
}

// Curvatures returns the plus and minus curvature branches. It fails with
// NO_REAL_SOLUTION when the discriminant is negative.
func Curvatures(k1, k2, k3 exact.Number) (plus, minus exact.Number, err error) {
	disc := Discriminant(k1, k2, k3)
	if disc.Sign() < 0 {
		return exact.Number{}, exact.Number{}, errors.New(errors.ErrCodeNoRealSolution,
			"discriminant %s of curvatures (%s, %s, %s) is negative", disc, k1, k2, k3)
	}
	root, err := disc.Sqrt()
	if err != nil {
		return exact.Number{}, exact.Number{}, err
	}
	sum := k1.Add(k2).Add(k3)
	twice := root.Add(root)
	return sum.Add(twice), sum.Sub(twice), nil
}

// Solve returns both circles tangent to the mutually tangent circles a, b
// and c. It fails with NO_REAL_SOLUTION for an unrealizable configuration,
// and with the branch error when both branches are degenerate.
func Solve(a, b, c Circle) (Result, error) {
	k1, k2, k3 := a.Curvature, b.Curvature, c.Curvature
	kPlus, kMinus, err := Curvatures(k1, k2, k3)
	if err != nil {
		return Result{}, err
	}

	z1, z2, z3 := a.Center, b.Center, c.Center
	s := z1.Scale(k1).Add(z2.Scale(k2)).Add(z3.Scale(k3))
	p := z1.Mul(z2).Scale(k1.Mul(k2)).
		Add(z2.Mul(z3).Scale(k2.Mul(k3))).
		Add(z3.Mul(z1).Scale(k3.Mul(k1)))

	w, err := exact.ComplexSqrt(p)
	if err != nil {
		return Result{}, errors.Wrap(errors.GetCode(err), err, "center cross term")
	}
	w = w.Add(w)
	if flip := orient(kPlus, kMinus, s, w, a, b, c); flip {
		w = w.Neg()
	}

	res := Result{
		Plus:  branch(Plus, kPlus, s.Add(w)),
		Minus: branch(Minus, kMinus, s.Sub(w)),
	}
	if !res.Plus.Valid() && !res.Minus.Valid() {
		return res, res.Plus.Err
	}
	return res, nil
}

func branch(sign Sign, k exact.Number, numerator exact.Complex) Solution {
	center, err := numerator.DivReal(k)
	if err != nil {
		return Solution{Sign: sign, Err: errors.Wrap(errors.ErrCodeDivisionByZero, err,
			"%s branch has zero curvature", sign)}
	}
	return Solution{Sign: sign, Curvature: k, Center: center}
}

// orient reports whether the root 2w must be negated so that the
// correlated pairing yields circles tangent to the inputs. It checks the
// plus branch, or the minus branch when the plus curvature is zero, in
// floating point; exact values only pick which of two candidates to keep.
func orient(kPlus, kMinus exact.Number, s, w exact.Complex, in ...Circle) bool {
	k, sign := kPlus, 1.0
	if k.IsZero() {
		k, sign = kMinus, -1.0
	}
	if k.IsZero() {
		return false
	}
	kf := k.Float64()
	sf, wf := s.Complex128(), w.Complex128()

	keep := residual(kf, (sf+complex(sign, 0)*wf)/complex(kf, 0), in)
	flip := residual(kf, (sf-complex(sign, 0)*wf)/complex(kf, 0), in)
	return flip < keep
}

// residual sums the relative tangency defects of the circle (k, z) against
// each input circle: the center distance should be |1/k + 1/ki|.
func residual(k float64, z complex128, in []Circle) float64 {
	var total float64
	for _, c := range in {
		ki := c.Curvature.Float64()
		want := math.Abs(1/k + 1/ki)
		got := cmplx.Abs(z - c.Center.Complex128())
		scale := math.Max(want, math.Abs(1/ki))
		total += math.Abs(got-want) / scale
	}
	return total
}
