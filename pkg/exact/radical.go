package exact

import (
	"math/big"
	"math/bits"
	"slices"
	"strings"
)

// term is coef·√rad with rad square-free and rad ≥ 2.
type term struct {
	coef *big.Rat
	rad  *big.Int
}

// radical is the algebraic normal form rational + Σ terms. Terms carry
// non-zero coefficients, are sorted by radicand, and there is at least one.
type radical struct {
	rational *big.Rat
	terms    []term
}

func (r *radical) equal(o *radical) bool {
	if r.rational.Cmp(o.rational) != 0 || len(r.terms) != len(o.terms) {
		return false
	}
	for i := range r.terms {
		if r.terms[i].rad.Cmp(o.terms[i].rad) != 0 || r.terms[i].coef.Cmp(o.terms[i].coef) != 0 {
			return false
		}
	}
	return true
}

func (r *radical) String() string {
	var b strings.Builder
	first := true
	write := func(neg bool, body string) {
		switch {
		case first && neg:
			b.WriteString("-")
		case neg:
			b.WriteString(" - ")
		case !first:
			b.WriteString(" + ")
		}
		b.WriteString(body)
		first = false
	}
	if r.rational.Sign() != 0 {
		write(r.rational.Sign() < 0, new(big.Rat).Abs(r.rational).RatString())
	}
	for _, t := range r.terms {
		c := new(big.Rat).Abs(t.coef)
		body := "sqrt(" + t.rad.String() + ")"
		if c.Cmp(ratOne) != 0 {
			body = c.RatString() + "*" + body
		}
		write(t.coef.Sign() < 0, body)
	}
	return b.String()
}

// =============================================================================
// Accumulator
// =============================================================================

// accumulator collects rational and radical contributions and produces a
// normalized Number. It must not be reused after number is called.
type accumulator struct {
	rational *big.Rat
	terms    map[string]term
}

func newAccumulator() *accumulator {
	return &accumulator{rational: new(big.Rat), terms: make(map[string]term)}
}

func (a *accumulator) addRat(q *big.Rat) {
	a.rational.Add(a.rational, q)
}

// addTerm adds c·√m. m must be square-free; m = 1 folds into the rational part.
func (a *accumulator) addTerm(c *big.Rat, m *big.Int) {
	if c.Sign() == 0 {
		return
	}
	if m.Cmp(bigOne) == 0 {
		a.addRat(c)
		return
	}
	key := m.String()
	if t, ok := a.terms[key]; ok {
		a.terms[key] = term{coef: new(big.Rat).Add(t.coef, c), rad: t.rad}
		return
	}
	a.terms[key] = term{coef: new(big.Rat).Set(c), rad: m}
}

func (a *accumulator) add(n Number) {
	q, ts := n.parts()
	a.addRat(q)
	for _, t := range ts {
		a.addTerm(t.coef, t.rad)
	}
}

func (a *accumulator) number() Number {
	terms := make([]term, 0, len(a.terms))
	for _, t := range a.terms {
		if t.coef.Sign() != 0 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return fromRat(a.rational)
	}
	slices.SortFunc(terms, func(x, y term) int { return x.rad.Cmp(y.rad) })
	return Number{kind: KindAlgebraic, alg: &radical{rational: a.rational, terms: terms}}
}

// surd returns √m for a square-free m ≥ 2.
func surd(m *big.Int) Number {
	acc := newAccumulator()
	acc.addTerm(ratOne, m)
	return acc.number()
}

// mulRadicands returns (g, r) with √a·√b = g·√r and r square-free when a
// and b are.
func mulRadicands(a, b *big.Int) (*big.Int, *big.Int) {
	g := new(big.Int).GCD(nil, nil, a, b)
	r := new(big.Int).Quo(a, g)
	r.Mul(r, new(big.Int).Quo(b, g))
	return g, r
}

// =============================================================================
// Field structure
// =============================================================================

// coprimeBasis refines radicands into pairwise coprime factors such that
// every radicand is a product of a subset of them. The result is sorted.
func coprimeBasis(rads []*big.Int) []*big.Int {
	basis := dedupe(rads)
	for {
		i, j, g := coprimePair(basis)
		if g == nil {
			break
		}
		next := make([]*big.Int, 0, len(basis)+1)
		for k, b := range basis {
			if k != i && k != j {
				next = append(next, b)
			}
		}
		for _, f := range []*big.Int{g, new(big.Int).Quo(basis[i], g), new(big.Int).Quo(basis[j], g)} {
			if f.Cmp(bigOne) > 0 {
				next = append(next, f)
			}
		}
		basis = dedupe(next)
	}
	return basis
}

// coprimePair finds the first pair of basis elements sharing a factor.
func coprimePair(basis []*big.Int) (int, int, *big.Int) {
	for i := range basis {
		for j := i + 1; j < len(basis); j++ {
			g := new(big.Int).GCD(nil, nil, basis[i], basis[j])
			if g.Cmp(bigOne) > 0 {
				return i, j, g
			}
		}
	}
	return 0, 0, nil
}

func dedupe(xs []*big.Int) []*big.Int {
	out := slices.Clone(xs)
	slices.SortFunc(out, func(a, b *big.Int) int { return a.Cmp(b) })
	return slices.CompactFunc(out, func(a, b *big.Int) bool { return a.Cmp(b) == 0 })
}

// split writes n = a + b·√p where neither a nor b involves √p. p must be an
// element of the coprime basis of n's radicands.
func split(n Number, p *big.Int) (a, b Number) {
	q, ts := n.parts()
	accA, accB := newAccumulator(), newAccumulator()
	accA.addRat(q)
	quo, rem := new(big.Int), new(big.Int)
	for _, t := range ts {
		quo.QuoRem(t.rad, p, rem)
		if rem.Sign() == 0 {
			accB.addTerm(t.coef, new(big.Int).Set(quo))
		} else {
			accA.addTerm(t.coef, t.rad)
		}
	}
	return accA.number(), accB.number()
}

// pivot returns the radical to eliminate next when rationalizing or
// denesting n.
func pivot(n Number) *big.Int {
	return coprimeBasis(n.Radicands())[0]
}

// =============================================================================
// Evaluation
// =============================================================================

const (
	minSignPrec = 64
	maxSignPrec = 1 << 16
)

// approx evaluates r at prec bits and returns an upper bound on the
// absolute error of the result.
func (r *radical) approx(prec uint) (val, bound *big.Float) {
	work := prec + 16
	val = new(big.Float).SetPrec(work).SetRat(r.rational)
	mag := new(big.Float).SetPrec(work).Abs(val)
	for _, t := range r.terms {
		s := new(big.Float).SetPrec(work).SetInt(t.rad)
		s.Sqrt(s)
		s.Mul(s, new(big.Float).SetPrec(work).SetRat(t.coef))
		val.Add(val, s)
		mag.Add(mag, new(big.Float).SetPrec(work).Abs(s))
	}
	slack := bits.Len(uint(len(r.terms))) + 4
	bound = new(big.Float).SetPrec(work).SetMantExp(mag, slack-int(prec))
	return val, bound
}

func (r *radical) sign() int {
	var val *big.Float
	for prec := uint(minSignPrec); prec <= maxSignPrec; prec *= 2 {
		v, bound := r.approx(prec)
		if new(big.Float).Abs(v).Cmp(bound) > 0 {
			return v.Sign()
		}
		val = v
	}
	return val.Sign()
}

// BigFloat returns n rounded to prec bits.
func (n Number) BigFloat(prec uint) *big.Float {
	if n.kind == KindAlgebraic {
		v, _ := n.alg.approx(prec)
		return v.SetPrec(prec)
	}
	return new(big.Float).SetPrec(prec).SetRat(n.ratValue())
}

// Float64 returns the nearest float64 to n.
func (n Number) Float64() float64 {
	if n.kind != KindAlgebraic {
		f, _ := n.ratValue().Float64()
		return f
	}
	f, _ := n.BigFloat(128).Float64()
	return f
}
