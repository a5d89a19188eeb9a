package seed

import (
	"slices"
	"testing"

	"github.com/matzehuels/gasket/pkg/descartes"
	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

func ints(ks ...int64) []exact.Number {
	out := make([]exact.Number, len(ks))
	for i, k := range ks {
		out[i] = exact.Int(k)
	}
	return out
}

func TestPlaceIntegerQuadruple(t *testing.T) {
	placed, err := Place(ints(-1, 2, 2, 3))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	want := []exact.Complex{
		exact.C(exact.Int(0), exact.Int(0)),
		exact.C(exact.Frac(1, 2), exact.Int(0)),
		exact.C(exact.Frac(-1, 2), exact.Int(0)),
		exact.C(exact.Int(0), exact.Frac(2, 3)),
	}
	if len(placed) != len(want) {
		t.Fatalf("got %d circles, want %d", len(placed), len(want))
	}
	for i, c := range placed {
		if !c.Center.Equal(want[i]) {
			t.Errorf("circle %d center = %s, want %s", i, c.Center, want[i])
		}
		if c.Center.Re.Kind() == exact.KindAlgebraic || c.Center.Im.Kind() == exact.KindAlgebraic {
			t.Errorf("circle %d center %s should be rational", i, c.Center)
		}
	}
}

func TestPlaceUnitTriple(t *testing.T) {
	placed, err := Place(ints(1, 1, 1))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if len(placed) != 3 {
		t.Fatalf("got %d circles, want 3", len(placed))
	}

	s3, err := exact.Int(3).Sqrt()
	if err != nil {
		t.Fatal(err)
	}
	if want := exact.C(exact.Int(1), s3); !placed[2].Center.Equal(want) {
		t.Errorf("third center = %s, want %s", placed[2].Center, want)
	}
	if want := exact.C(exact.Int(2), exact.Int(0)); !placed[1].Center.Equal(want) {
		t.Errorf("second center = %s, want %s", placed[1].Center, want)
	}
}

func TestPlaceIsMutuallyTangent(t *testing.T) {
	seeds := [][]exact.Number{
		ints(-2, 3, 6, 7),
		ints(-3, 5, 8, 8),
		ints(-6, 11, 14, 15),
		ints(2, 2, 3, 15),
		{exact.Frac(-1, 2), exact.Int(1), exact.Frac(3, 2), exact.Int(3)},
	}

	for _, ks := range seeds {
		t.Run(exact.Format(ks[0]), func(t *testing.T) {
			placed, err := Place(ks)
			if err != nil {
				t.Fatalf("Place(%v): %v", ks, err)
			}
			for i := range placed {
				for j := i + 1; j < len(placed); j++ {
					assertTangent(t, placed[i], placed[j])
				}
			}
		})
	}
}

// assertTangent checks |zi - zj|² = d² exactly.
func assertTangent(t *testing.T, a, b descartes.Circle) {
	t.Helper()
	d := TangentDistance(a.Curvature, b.Curvature)
	got := a.Center.Sub(b.Center).Abs2()
	if !got.Equal(d.Mul(d)) {
		t.Errorf("circles %s@%s and %s@%s: |dz|² = %s, want %s",
			a.Curvature, a.Center, b.Curvature, b.Center, got, d.Mul(d))
	}
}

func TestPlaceErrors(t *testing.T) {
	tests := []struct {
		name string
		ks   []exact.Number
		code errors.Code
	}{
		{"too few", ints(1, 1), errors.ErrCodeInvalidConfiguration},
		{"too many", ints(-1, 2, 2, 3, 3), errors.ErrCodeInvalidConfiguration},
		{"zero curvature", ints(1, 0, 1), errors.ErrCodeDivisionByZero},
		{"two enclosing", ints(-1, -2, 3), errors.ErrCodeInvalidConfiguration},
		{"coincident", ints(-1, 1, 2), errors.ErrCodeNoTangentPlacement},
		{"inner too large", ints(-2, 1, 3), errors.ErrCodeNoTangentPlacement},
		{"wrong fourth", ints(-1, 2, 2, 4), errors.ErrCodeInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Place(tt.ks)
			if !errors.Is(err, tt.code) {
				t.Errorf("Place error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestTangentDistance(t *testing.T) {
	tests := []struct {
		k1, k2 exact.Number
		want   exact.Number
	}{
		{exact.Int(2), exact.Int(3), exact.Frac(5, 6)},
		{exact.Int(-1), exact.Int(2), exact.Frac(1, 2)},
		{exact.Int(2), exact.Int(-1), exact.Frac(1, 2)},
		{exact.Int(-2), exact.Int(-4), exact.Frac(1, 4)},
	}

	for _, tt := range tests {
		if got := TangentDistance(tt.k1, tt.k2); !got.Equal(tt.want) {
			t.Errorf("TangentDistance(%s, %s) = %s, want %s", tt.k1, tt.k2, got, tt.want)
		}
	}
}

func TestIntegral(t *testing.T) {
	var got [][5]int64
	for q := range Integral(3) {
		got = append(got, q.Curvatures())
	}
	want := [][5]int64{
		{-1, 2, 2, 3, 3},
		{-2, 3, 6, 7, 7},
		{-3, 4, 12, 13, 13},
		{-3, 5, 8, 8, 12},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Integral(3) = %v, want %v", got, want)
	}
}

func TestIntegralQuintetsSatisfyDescartes(t *testing.T) {
	for q := range Integral(30) {
		c := q.Curvatures()
		sum := c[0] + c[1] + c[2] + c[3]
		squares := c[0]*c[0] + c[1]*c[1] + c[2]*c[2] + c[3]*c[3]
		if 2*squares != sum*sum {
			t.Errorf("%s violates the Descartes relation", q)
		}
		if c[3]+c[4] != 2*(c[0]+c[1]+c[2]) {
			t.Errorf("%s: last two are not the Descartes pair", q)
		}
	}
}

func TestIntegralSeedsPlace(t *testing.T) {
	n := 0
	for q := range Integral(10) {
		if _, err := Place(q.Seed()); err != nil {
			t.Errorf("Place(%s): %v", q, err)
		}
		n++
	}
	if n == 0 {
		t.Fatal("Integral(10) yielded nothing")
	}
}

func TestIntegralStopsEarly(t *testing.T) {
	n := 0
	for range Integral(100) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d quintets, want 3", n)
	}
}
