package seed

import (
	"fmt"
	"iter"

	"github.com/matzehuels/gasket/pkg/exact"
)

// Quintet is the root of an irreducible integral gasket, parameterized by
// a solution of B² + μ² = k·n.
type Quintet struct {
	B, Mu, K, N int64
}

// Curvatures returns (-B, B+k, B+n, B+k+n-2μ, B+k+n+2μ). The first four
// are mutually tangent; the last two are the two circles tangent to the
// first three.
func (q Quintet) Curvatures() [5]int64 {
	s := q.B + q.K + q.N
	return [5]int64{-q.B, q.B + q.K, q.B + q.N, s - 2*q.Mu, s + 2*q.Mu}
}

// Seed returns the first four curvatures, ready for [Place].
func (q Quintet) Seed() []exact.Number {
	c := q.Curvatures()
	return []exact.Number{exact.Int(c[0]), exact.Int(c[1]), exact.Int(c[2]), exact.Int(c[3])}
}

func (q Quintet) String() string {
	c := q.Curvatures()
	return fmt.Sprintf("(%d, %d, %d, %d, %d)", c[0], c[1], c[2], c[3], c[4])
}

// Integral enumerates the root quintets of all irreducible integral gaskets
// whose enclosing bend B satisfies 1 ≤ B ≤ maxB, ordered by B, then μ,
// then k.
//
// For each B it walks 0 ≤ μ ≤ B/√3 and the divisors k of B² + μ² with
// 2μ ≤ k ≤ √(B² + μ²), keeping k ≤ n and gcd(B, k, n) = 1.
func Integral(maxB int64) iter.Seq[Quintet] {
	return func(yield func(Quintet) bool) {
		for b := int64(1); b <= maxB; b++ {
			for mu := int64(0); 3*mu*mu <= b*b; mu++ {
				h := b*b + mu*mu
				for k := max(2*mu, 1); k*k <= h; k++ {
					if h%k != 0 {
						continue
					}
					n := h / k
					if k > n || gcd(gcd(b, k), n) != 1 {
						continue
					}
					if !yield(Quintet{B: b, Mu: mu, K: k, N: n}) {
						return
					}
				}
			}
		}
	}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
