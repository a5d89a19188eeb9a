package exact

import (
	"math/big"

	"github.com/matzehuels/gasket/pkg/errors"
)

const (
	// maxDenestDepth bounds the recursion of algebraic square roots.
	maxDenestDepth = 8

	// trialDivisionSteps bounds the trial division used to extract square
	// factors from a radicand. A repeated prime factor above the bound that
	// is not itself a perfect square leaves the radicand non-square-free:
	// the value stays exact but may not share a canonical form with an
	// equal value.
	trialDivisionSteps = 1 << 16
)

// Sqrt returns the non-negative square root of n.
//
// Perfect squares of integers and rationals stay rational. Other rationals
// become c·√m with m square-free. Algebraic values are denested into the
// normal form; if their root is not a sum of square roots Sqrt fails with
// UNSUPPORTED_RADICAL. Negative inputs fail with NO_REAL_SOLUTION.
func (n Number) Sqrt() (Number, error) {
	return n.sqrt(0)
}

func (n Number) sqrt(depth int) (Number, error) {
	switch s := n.Sign(); {
	case s < 0:
		return Number{}, errors.New(errors.ErrCodeNoRealSolution, "square root of negative value %s", n)
	case s == 0:
		return Number{}, nil
	}
	if n.kind != KindAlgebraic {
		return sqrtRat(n.ratValue()), nil
	}
	if depth >= maxDenestDepth {
		return Number{}, errUnsupportedRoot(n)
	}

	// Look for y = c + d√p with y² = n = a + b√p:
	// c² + p·d² = a and 2cd = b, so c² = (a ± √(a² - p·b²)) / 2.
	p := pivot(n)
	a, b := split(n, p)
	norm := a.Mul(a).Sub(b.Mul(b).Mul(NewInt(p)))
	root, err := norm.sqrt(depth + 1)
	if err != nil {
		return Number{}, errors.Wrap(errors.ErrCodeUnsupportedRadical, err, "cannot denest sqrt(%s)", n)
	}

	for _, c2 := range []Number{a.Add(root).Half(), a.Sub(root).Half()} {
		if c2.Sign() <= 0 {
			continue
		}
		c, err := c2.sqrt(depth + 1)
		if err != nil {
			continue
		}
		d, err := b.Div(c.Add(c))
		if err != nil {
			continue
		}
		y := c.Add(d.Mul(surd(p)))
		if !y.Mul(y).Equal(n) {
			continue
		}
		if y.Sign() < 0 {
			y = y.Neg()
		}
		return y, nil
	}
	return Number{}, errUnsupportedRoot(n)
}

func errUnsupportedRoot(n Number) error {
	return errors.New(errors.ErrCodeUnsupportedRadical, "sqrt(%s) is not a sum of square roots", n)
}

// sqrtRat returns √q for q > 0: √(p/q) = √(p·q)/q.
func sqrtRat(q *big.Rat) Number {
	den := q.Denom()
	radicand := new(big.Int).Mul(q.Num(), den)
	if s := new(big.Int).Sqrt(radicand); new(big.Int).Mul(s, s).Cmp(radicand) == 0 {
		return fromRat(new(big.Rat).SetFrac(s, den))
	}
	f, m := squareFree(radicand)
	acc := newAccumulator()
	acc.addTerm(new(big.Rat).SetFrac(f, den), m)
	return acc.number()
}

// squareFree writes n = f²·m and returns (f, m), with m square-free up to
// the trial-division bound.
func squareFree(n *big.Int) (f, m *big.Int) {
	f, m = big.NewInt(1), big.NewInt(1)
	if n.ProbablyPrime(20) {
		return f, new(big.Int).Set(n)
	}

	rest := new(big.Int).Set(n)
	d := big.NewInt(2)
	sq, quo, rem := new(big.Int), new(big.Int), new(big.Int)
	for step := 0; step < trialDivisionSteps; step++ {
		if sq.Mul(d, d).Cmp(rest) > 0 {
			break
		}
		for {
			quo.QuoRem(rest, sq, rem)
			if rem.Sign() != 0 {
				break
			}
			rest.Set(quo)
			f.Mul(f, d)
		}
		if quo.QuoRem(rest, d, rem); rem.Sign() == 0 {
			rest.Set(quo)
			m.Mul(m, d)
		}
		if d.Cmp(bigTwo) == 0 {
			d.SetInt64(3)
		} else {
			d.Add(d, bigTwo)
		}
	}

	if rest.Cmp(bigOne) > 0 {
		if s := new(big.Int).Sqrt(rest); new(big.Int).Mul(s, s).Cmp(rest) == 0 {
			f.Mul(f, s)
		} else {
			m.Mul(m, rest)
		}
	}
	return f, m
}
