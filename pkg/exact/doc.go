// Package exact implements the exact-number tower used for curvatures and
// circle centers.
//
// # Overview
//
// A [Number] is a closed tagged union over three representations:
//
//   - [KindInteger]: an arbitrary-precision integer.
//   - [KindRational]: a normalized fraction p/q with q > 1.
//   - [KindAlgebraic]: a quadratic irrational in normal form
//     r + c₁·√m₁ + … + cₙ·√mₙ with rational r and cᵢ, and distinct
//     square-free radicands mᵢ ≥ 2 sorted ascending.
//
// Every operation returns the simplest kind able to hold the result, so an
// algebraic expression that collapses (for example √2·√8) comes back as an
// Integer. Operations on Integer and Rational operands run on math/big only
// and never touch the algebraic path.
//
// The algebraic normal form is closed under addition, multiplication and
// division (division rationalizes one radical at a time). Square roots of
// algebraic values are denested back into the normal form when possible;
// when the root is not a sum of square roots, [Number.Sqrt] fails with
// UNSUPPORTED_RADICAL rather than approximating.
//
// Because square roots of distinct square-free integers are linearly
// independent over the rationals, equality and zero tests are structural.
// Ordering uses high-precision [math/big.Float] evaluation with an error
// bound, increasing precision until the sign is certain.
//
// # Complex values
//
// [Complex] is a pair of Numbers. [ComplexSqrt] returns the principal root
// with exact parts.
//
// # Serialization
//
// [Format] and [Parse] use the tagged grammar:
//
//	int:<n>        Integer
//	frac:<p>/<q>   Rational
//	sym:<expr>     Algebraic, e.g. sym:3 + 2*sqrt(3)
//
// Formatting an algebraic value always emits its canonical normal form, so
// equal values format identically. [ToFractionLossy] and
// [ToNumeratorDenominator] are the only lossy exits; both take the
// denominator cap explicitly ([DefaultMaxDenominator] is 10^9).
package exact
