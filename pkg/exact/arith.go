package exact

import (
	"math/big"

	"github.com/matzehuels/gasket/pkg/errors"
)

const (
	// maxExponent bounds |exp| in [Number.Pow].
	maxExponent = 1 << 16

	// maxPowBits bounds the estimated size of a power, in bits.
	maxPowBits = 1 << 16
)

// Add returns n + m.
func (n Number) Add(m Number) Number {
	if n.kind != KindAlgebraic && m.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Add(n.ratValue(), m.ratValue()))
	}
	acc := newAccumulator()
	acc.add(n)
	acc.add(m)
	return acc.number()
}

// Sub returns n - m.
func (n Number) Sub(m Number) Number {
	if n.kind != KindAlgebraic && m.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Sub(n.ratValue(), m.ratValue()))
	}
	return n.Add(m.Neg())
}

// Neg returns -n.
func (n Number) Neg() Number {
	if n.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Neg(n.ratValue()))
	}
	acc := newAccumulator()
	acc.addRat(new(big.Rat).Neg(n.alg.rational))
	for _, t := range n.alg.terms {
		acc.addTerm(new(big.Rat).Neg(t.coef), t.rad)
	}
	return acc.number()
}

// Abs returns |n|.
func (n Number) Abs() Number {
	if n.Sign() < 0 {
		return n.Neg()
	}
	return n
}

// Mul returns n·m.
func (n Number) Mul(m Number) Number {
	if n.kind != KindAlgebraic && m.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Mul(n.ratValue(), m.ratValue()))
	}
	q1, t1 := n.parts()
	q2, t2 := m.parts()

	acc := newAccumulator()
	acc.addRat(new(big.Rat).Mul(q1, q2))
	for _, t := range t1 {
		acc.addTerm(new(big.Rat).Mul(q2, t.coef), t.rad)
	}
	for _, t := range t2 {
		acc.addTerm(new(big.Rat).Mul(q1, t.coef), t.rad)
	}
	for _, a := range t1 {
		for _, b := range t2 {
			g, r := mulRadicands(a.rad, b.rad)
			c := new(big.Rat).Mul(a.coef, b.coef)
			c.Mul(c, new(big.Rat).SetInt(g))
			acc.addTerm(c, r)
		}
	}
	return acc.number()
}

// Inv returns 1/n, failing with DIVISION_BY_ZERO when n is zero.
//
// Algebraic values are rationalized one radical at a time:
// 1/(a + b√p) = (a - b√p) / (a² - p·b²), where the denominator no longer
// involves √p.
func (n Number) Inv() (Number, error) {
	if n.IsZero() {
		return Number{}, errDivisionByZero("inverse")
	}
	if n.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Inv(n.ratValue())), nil
	}

	p := pivot(n)
	a, b := split(n, p)
	conj := a.Sub(b.Mul(surd(p)))
	norm := a.Mul(a).Sub(b.Mul(b).Mul(NewInt(p)))
	inv, err := norm.Inv()
	if err != nil {
		return Number{}, err
	}
	return conj.Mul(inv), nil
}

// Div returns n/m, failing with DIVISION_BY_ZERO when m is zero.
func (n Number) Div(m Number) (Number, error) {
	if m.IsZero() {
		return Number{}, errDivisionByZero(n.String() + "/0")
	}
	if n.kind != KindAlgebraic && m.kind != KindAlgebraic {
		return fromRat(new(big.Rat).Quo(n.ratValue(), m.ratValue())), nil
	}
	inv, err := m.Inv()
	if err != nil {
		return Number{}, err
	}
	return n.Mul(inv), nil
}

// Pow returns n raised to exp. Integer exponents are computed by repeated
// squaring; half-integer exponents go through [Number.Sqrt]. Any other
// exponent would leave the quadratic tower and fails with
// UNSUPPORTED_RADICAL.
func (n Number) Pow(exp Number) (Number, error) {
	switch exp.kind {
	case KindInteger:
		return n.powInt(exp.ratValue().Num())
	case KindRational:
		q := exp.ratValue()
		if q.Denom().Cmp(bigTwo) == 0 {
			root, err := n.Sqrt()
			if err != nil {
				return Number{}, err
			}
			return root.powInt(q.Num())
		}
	}
	return Number{}, errors.New(errors.ErrCodeUnsupportedRadical,
		"exponent %s is neither an integer nor a half-integer", exp)
}

// PowInt returns n^e.
func (n Number) PowInt(e int64) (Number, error) {
	return n.powInt(big.NewInt(e))
}

func (n Number) powInt(e *big.Int) (Number, error) {
	if e.CmpAbs(big.NewInt(maxExponent)) > 0 {
		return Number{}, errors.New(errors.ErrCodeInvalidInput, "exponent %s too large", e)
	}
	if size := int64(n.bitSize()) * new(big.Int).Abs(e).Int64(); size > maxPowBits {
		return Number{}, errors.New(errors.ErrCodeInvalidInput,
			"power %s**%s too large (about %d bits)", n, e, size)
	}
	if e.Sign() < 0 {
		inv, err := n.Inv()
		if err != nil {
			return Number{}, err
		}
		return inv.powInt(new(big.Int).Neg(e))
	}
	if n.kind != KindAlgebraic {
		q := n.ratValue()
		num := new(big.Int).Exp(q.Num(), e, nil)
		den := new(big.Int).Exp(q.Denom(), e, nil)
		return fromRat(new(big.Rat).SetFrac(num, den)), nil
	}

	result, base := Int(1), n
	for i := 0; i < e.BitLen(); i++ {
		if e.Bit(i) == 1 {
			result = result.Mul(base)
		}
		if i+1 < e.BitLen() {
			base = base.Mul(base)
		}
	}
	return result, nil
}

// Half returns n/2.
func (n Number) Half() Number {
	return n.Mul(Number{kind: KindRational, rat: ratHalf})
}

// bitSize is the largest bit length among the integers that make up n.
func (n Number) bitSize() int {
	size := ratBits(n.ratValue())
	if n.kind == KindAlgebraic {
		size = ratBits(n.alg.rational)
		for _, t := range n.alg.terms {
			size = max(size, ratBits(t.coef), t.rad.BitLen())
		}
	}
	return size
}

func ratBits(q *big.Rat) int {
	return max(q.Num().BitLen(), q.Denom().BitLen())
}
