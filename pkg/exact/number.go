package exact

import (
	"math/big"

	"github.com/matzehuels/gasket/pkg/errors"
)

// Kind identifies the representation held by a [Number].
type Kind uint8

const (
	KindInteger Kind = iota
	KindRational
	KindAlgebraic
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindRational:
		return "rational"
	case KindAlgebraic:
		return "algebraic"
	default:
		return "unknown"
	}
}

var (
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	ratZero = new(big.Rat)
	ratOne  = big.NewRat(1, 1)
	ratHalf = big.NewRat(1, 2)
)

// Number is an exact real number. The zero value is the Integer 0.
//
// Numbers are immutable; every operation allocates its result and never
// modifies its operands, so values may be shared freely.
type Number struct {
	kind Kind
	rat  *big.Rat // Integer and Rational; nil means zero
	alg  *radical // Algebraic only
}

// Int returns the Integer i.
func Int(i int64) Number {
	return fromRat(new(big.Rat).SetInt64(i))
}

// NewInt returns the Integer holding a copy of i.
func NewInt(i *big.Int) Number {
	return fromRat(new(big.Rat).SetInt(i))
}

// Frac returns p/q reduced to lowest terms. It panics if q is zero.
func Frac(p, q int64) Number {
	return fromRat(big.NewRat(p, q))
}

// NewRat returns the Number holding a copy of r.
func NewRat(r *big.Rat) Number {
	return fromRat(new(big.Rat).Set(r))
}

// fromRat takes ownership of q.
func fromRat(q *big.Rat) Number {
	if q.IsInt() {
		return Number{kind: KindInteger, rat: q}
	}
	return Number{kind: KindRational, rat: q}
}

func (n Number) ratValue() *big.Rat {
	if n.rat == nil {
		return ratZero
	}
	return n.rat
}

// parts returns the rational part and the radical terms of n.
func (n Number) parts() (*big.Rat, []term) {
	if n.kind == KindAlgebraic {
		return n.alg.rational, n.alg.terms
	}
	return n.ratValue(), nil
}

// Kind reports the representation of n.
func (n Number) Kind() Kind { return n.kind }

// IsZero reports whether n == 0.
func (n Number) IsZero() bool {
	return n.kind != KindAlgebraic && n.ratValue().Sign() == 0
}

// IsRational reports whether n is an Integer or a Rational.
func (n Number) IsRational() bool { return n.kind != KindAlgebraic }

// Rat returns a copy of n as a big.Rat. ok is false for algebraic values.
func (n Number) Rat() (r *big.Rat, ok bool) {
	if n.kind == KindAlgebraic {
		return nil, false
	}
	return new(big.Rat).Set(n.ratValue()), true
}

// BigInt returns a copy of n as a big.Int. ok is false unless n is an Integer.
func (n Number) BigInt() (i *big.Int, ok bool) {
	if n.kind != KindInteger {
		return nil, false
	}
	return new(big.Int).Set(n.ratValue().Num()), true
}

// Radicands returns the square-free radicands of the terms of n in
// ascending order. It is empty for rational values.
func (n Number) Radicands() []*big.Int {
	_, ts := n.parts()
	out := make([]*big.Int, len(ts))
	for i, t := range ts {
		out[i] = new(big.Int).Set(t.rad)
	}
	return out
}

// HasRadical reports whether √m appears in the normal form of n.
func (n Number) HasRadical(m int64) bool {
	_, ts := n.parts()
	target := big.NewInt(m)
	for _, t := range ts {
		if t.rad.Cmp(target) == 0 {
			return true
		}
	}
	return false
}

// Equal reports whether n and m denote the same real number.
func (n Number) Equal(m Number) bool {
	if n.kind != m.kind {
		return false
	}
	if n.kind != KindAlgebraic {
		return n.ratValue().Cmp(m.ratValue()) == 0
	}
	return n.alg.equal(m.alg)
}

// Sign returns -1, 0 or +1 according to the sign of n.
func (n Number) Sign() int {
	if n.kind == KindAlgebraic {
		return n.alg.sign()
	}
	return n.ratValue().Sign()
}

// Cmp compares n and m and returns -1, 0 or +1.
func (n Number) Cmp(m Number) int {
	if n.kind != KindAlgebraic && m.kind != KindAlgebraic {
		return n.ratValue().Cmp(m.ratValue())
	}
	return n.Sub(m).Sign()
}

// String renders n without its serialization tag, e.g. "3", "-1/2" or
// "3 + 2*sqrt(3)".
func (n Number) String() string {
	if n.kind == KindAlgebraic {
		return n.alg.String()
	}
	return n.ratValue().RatString()
}

// MarshalText implements encoding.TextMarshaler using [Format].
func (n Number) MarshalText() ([]byte, error) {
	return []byte(Format(n)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using [ParseLoose].
func (n *Number) UnmarshalText(text []byte) error {
	v, err := ParseLoose(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func errDivisionByZero(what string) error {
	return errors.New(errors.ErrCodeDivisionByZero, "%s: division by zero", what)
}
