package exact

import "math/big"

// DefaultMaxDenominator is the conventional denominator cap for lossy
// projections.
const DefaultMaxDenominator = 1_000_000_000

// DefaultDenominatorCap returns [DefaultMaxDenominator] as a new big.Int.
func DefaultDenominatorCap() *big.Int {
	return big.NewInt(DefaultMaxDenominator)
}

// lossyPrec is the precision at which algebraic values are evaluated before
// the continued-fraction search.
const lossyPrec = 256

// ToFractionLossy returns the closest rational to n whose denominator does
// not exceed maxDen. A nil maxDen means [DefaultMaxDenominator].
//
// Integers and rationals whose denominator already fits are returned
// exactly. For algebraic values the projection is not invertible.
func ToFractionLossy(n Number, maxDen *big.Int) *big.Rat {
	if maxDen == nil || maxDen.Sign() <= 0 {
		maxDen = DefaultDenominatorCap()
	}
	var q *big.Rat
	if n.kind == KindAlgebraic {
		q, _ = n.BigFloat(lossyPrec).Rat(nil)
	} else {
		q = new(big.Rat).Set(n.ratValue())
	}
	return limitDenominator(q, maxDen)
}

// ToNumeratorDenominator returns the numerator and denominator of
// [ToFractionLossy].
func ToNumeratorDenominator(n Number, maxDen *big.Int) (num, den *big.Int) {
	q := ToFractionLossy(n, maxDen)
	return new(big.Int).Set(q.Num()), new(big.Int).Set(q.Denom())
}

// limitDenominator finds the best rational approximation of q with
// denominator at most maxDen by walking the continued fraction of |q| and
// comparing the last convergent with the best semiconvergent.
func limitDenominator(q *big.Rat, maxDen *big.Int) *big.Rat {
	if q.Denom().Cmp(maxDen) <= 0 {
		return q
	}
	neg := q.Sign() < 0
	abs := new(big.Rat).Abs(q)

	p0, q0 := big.NewInt(0), big.NewInt(1)
	p1, q1 := big.NewInt(1), big.NewInt(0)
	n, d := new(big.Int).Set(abs.Num()), new(big.Int).Set(abs.Denom())
	a, q2, tmp := new(big.Int), new(big.Int), new(big.Int)
	for d.Sign() != 0 {
		a.Quo(n, d)
		q2.Add(q0, tmp.Mul(a, q1))
		if q2.Cmp(maxDen) > 0 {
			break
		}
		p0, p1 = p1, new(big.Int).Add(p0, tmp.Mul(a, p1))
		q0, q1 = q1, new(big.Int).Set(q2)
		n, d = d, new(big.Int).Sub(n, tmp.Mul(a, d))
	}

	k := new(big.Int).Sub(maxDen, q0)
	k.Quo(k, q1)
	lower := new(big.Rat).SetFrac(
		new(big.Int).Add(p0, new(big.Int).Mul(k, p1)),
		new(big.Int).Add(q0, new(big.Int).Mul(k, q1)),
	)
	upper := new(big.Rat).SetFrac(p1, q1)

	best := upper
	dl := new(big.Rat).Abs(new(big.Rat).Sub(lower, abs))
	du := new(big.Rat).Abs(new(big.Rat).Sub(upper, abs))
	if dl.Cmp(du) < 0 {
		best = lower
	}
	if neg {
		best.Neg(best)
	}
	return best
}
