package exact

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/matzehuels/gasket/pkg/errors"
)

func sqrtOf(t *testing.T, n Number) Number {
	t.Helper()
	r, err := n.Sqrt()
	if err != nil {
		t.Fatalf("Sqrt(%s): %v", n, err)
	}
	return r
}

func mustParse(t *testing.T, s string) Number {
	t.Helper()
	n, err := ParseLoose(s)
	if err != nil {
		t.Fatalf("ParseLoose(%q): %v", s, err)
	}
	return n
}

func TestZeroValue(t *testing.T) {
	var n Number
	if n.Kind() != KindInteger {
		t.Errorf("Kind() = %v, want integer", n.Kind())
	}
	if !n.IsZero() {
		t.Error("zero value should be zero")
	}
	if got := Format(n); got != "int:0" {
		t.Errorf("Format(zero) = %q, want %q", got, "int:0")
	}
}

func TestFracNormalizes(t *testing.T) {
	tests := []struct {
		p, q     int64
		wantKind Kind
		want     string
	}{
		{4, 2, KindInteger, "int:2"},
		{1, 2, KindRational, "frac:1/2"},
		{-6, 4, KindRational, "frac:-3/2"},
		{6, -4, KindRational, "frac:-3/2"},
		{0, 5, KindInteger, "int:0"},
	}

	for _, tt := range tests {
		n := Frac(tt.p, tt.q)
		if n.Kind() != tt.wantKind {
			t.Errorf("Frac(%d,%d).Kind() = %v, want %v", tt.p, tt.q, n.Kind(), tt.wantKind)
		}
		if got := Format(n); got != tt.want {
			t.Errorf("Format(Frac(%d,%d)) = %q, want %q", tt.p, tt.q, got, tt.want)
		}
	}
}

func TestTypeMinimality(t *testing.T) {
	two := sqrtOf(t, Int(2))
	three := sqrtOf(t, Int(3))
	eight := sqrtOf(t, Int(8))

	onePlus := Int(1).Add(three)
	oneMinus := Int(1).Sub(three)
	quotient, err := onePlus.Div(onePlus)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  Number
		want Number
	}{
		{"sqrt2 squared", two.Mul(two), Int(2)},
		{"sqrt8 times sqrt2", eight.Mul(two), Int(4)},
		{"conjugate product", onePlus.Mul(oneMinus), Int(-2)},
		{"cancellation", three.Add(Int(5)).Sub(three), Int(5)},
		{"self quotient", quotient, Int(1)},
		{"rational sum", Frac(1, 3).Add(Frac(2, 3)), Int(1)},
		{"rational product", Frac(2, 3).Mul(Frac(3, 4)), Frac(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Kind() == KindAlgebraic {
				t.Fatalf("got algebraic %s, want %s", tt.got, tt.want)
			}
			if !tt.got.Equal(tt.want) {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4", "int:2"},
		{"9/4", "frac:3/2"},
		{"0", "int:0"},
		{"12", "sym:2*sqrt(3)"},
		{"3", "sym:sqrt(3)"},
		{"1/3", "sym:1/3*sqrt(3)"},
		{"3 + 2*sqrt(2)", "sym:1 + sqrt(2)"},
		{"5 + 2*sqrt(6)", "sym:sqrt(2) + sqrt(3)"},
		{"7 - 4*sqrt(3)", "sym:2 - sqrt(3)"},
		{"96 + 24*sqrt(15)", "sym:6 + 2*sqrt(15)"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := sqrtOf(t, mustParse(t, tt.in))
			if Format(got) != tt.want {
				t.Errorf("Sqrt(%s) = %s, want %s", tt.in, Format(got), tt.want)
			}
			if got.Sign() < 0 {
				t.Errorf("Sqrt(%s) is negative", tt.in)
			}
		})
	}
}

func TestSqrtFailures(t *testing.T) {
	tests := []struct {
		in   string
		code errors.Code
	}{
		{"-4", errors.ErrCodeNoRealSolution},
		{"1 - sqrt(2)", errors.ErrCodeNoRealSolution},
		{"3*sqrt(2)", errors.ErrCodeUnsupportedRadical},
		{"1 + sqrt(2)", errors.ErrCodeUnsupportedRadical},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := mustParse(t, tt.in).Sqrt()
			if !errors.Is(err, tt.code) {
				t.Errorf("Sqrt(%s) error = %v, want code %s", tt.in, err, tt.code)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := Int(1).Div(Int(0))
	if !errors.Is(err, errors.ErrCodeDivisionByZero) {
		t.Errorf("1/0 error = %v, want DIVISION_BY_ZERO", err)
	}
	_, err = Number{}.Inv()
	if !errors.Is(err, errors.ErrCodeDivisionByZero) {
		t.Errorf("Inv(0) error = %v, want DIVISION_BY_ZERO", err)
	}
	_, err = sqrtOf(t, Int(2)).Div(Number{})
	if !errors.Is(err, errors.ErrCodeDivisionByZero) {
		t.Errorf("sqrt(2)/0 error = %v, want DIVISION_BY_ZERO", err)
	}
}

func TestInverseRationalizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 + sqrt(2)", "sym:-1 + sqrt(2)"},
		{"sqrt(3)", "sym:1/3*sqrt(3)"},
		{"sqrt(2) + sqrt(3)", "sym:-sqrt(2) + sqrt(3)"},
		{"3 + 2*sqrt(3)", "sym:-1 + 2/3*sqrt(3)"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := mustParse(t, tt.in)
			inv, err := n.Inv()
			if err != nil {
				t.Fatal(err)
			}
			if Format(inv) != tt.want {
				t.Errorf("1/(%s) = %s, want %s", tt.in, Format(inv), tt.want)
			}
			if !n.Mul(inv).Equal(Int(1)) {
				t.Errorf("(%s)·(%s) != 1", n, inv)
			}
		})
	}
}

func TestSignAndCmp(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3 - 2*sqrt(2)", 1},
		{"sqrt(2) + sqrt(3) - sqrt(10)", -1},
		{"-7/3", -1},
		{"0", 0},
		{"99/70 - sqrt(2)", 1},
		{"577/408 - sqrt(2)", 1},
		{"1393/985 - sqrt(2)", -1},
		{"3363/2378 - sqrt(2)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := mustParse(t, tt.in).Sign(); got != tt.want {
				t.Errorf("Sign(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if Int(2).Cmp(sqrtOf(t, Int(3))) <= 0 {
		t.Error("2 should compare greater than sqrt(3)")
	}
	if sqrtOf(t, Int(3)).Abs().Neg().Abs().Cmp(sqrtOf(t, Int(3))) != 0 {
		t.Error("Abs should be idempotent under negation")
	}
}

func TestPow(t *testing.T) {
	tests := []struct {
		base string
		exp  Number
		want string
	}{
		{"2", Int(10), "int:1024"},
		{"1/2", Int(-2), "int:4"},
		{"sqrt(2)", Int(3), "sym:2*sqrt(2)"},
		{"1 + sqrt(3)", Int(2), "sym:4 + 2*sqrt(3)"},
		{"4", Frac(1, 2), "int:2"},
		{"4", Frac(3, 2), "int:8"},
		{"7", Int(0), "int:1"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := mustParse(t, tt.base).Pow(tt.exp)
			if err != nil {
				t.Fatal(err)
			}
			if Format(got) != tt.want {
				t.Errorf("Pow(%s, %s) = %s, want %s", tt.base, tt.exp, Format(got), tt.want)
			}
		})
	}

	if _, err := Int(2).Pow(Frac(1, 3)); !errors.Is(err, errors.ErrCodeUnsupportedRadical) {
		t.Errorf("cube root error = %v, want UNSUPPORTED_RADICAL", err)
	}
	if _, err := Int(0).Pow(Int(-1)); !errors.Is(err, errors.ErrCodeDivisionByZero) {
		t.Errorf("0^-1 error = %v, want DIVISION_BY_ZERO", err)
	}
}

func TestPowResultBound(t *testing.T) {
	tests := []struct {
		name string
		base Number
		exp  Number
	}{
		{"exponent over limit", Int(2), Int(maxExponent + 1)},
		{"wide base", Int(7), Int(maxExponent)},
		{"wide negative exponent", Int(7), Int(-maxExponent)},
		{"wide rational", Frac(1, 1<<20), Int(1 << 13)},
		{"wide algebraic", mustParse(t, "1 + 1000*sqrt(2)"), Int(1 << 13)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.base.Pow(tt.exp); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Pow(%s, %s) error = %v, want INVALID_INPUT", tt.base, tt.exp, err)
			}
		})
	}

	got, err := Int(2).Pow(Int(1 << 15))
	if err != nil {
		t.Fatalf("2^32768: %v", err)
	}
	if bits := got.ratValue().Num().BitLen(); bits != 1<<15+1 {
		t.Errorf("2^32768 has %d bits, want %d", bits, 1<<15+1)
	}
}

func TestParseNestedPowerRejected(t *testing.T) {
	for _, in := range []string{
		"(7**65536)**2048",
		"((2**256)**256)**256",
		"sym:(3**40000)**40000",
	} {
		t.Run(in, func(t *testing.T) {
			start := time.Now()
			_, err := ParseLoose(in)
			if err == nil {
				t.Fatalf("ParseLoose(%q) succeeded, want error", in)
			}
			if !errors.Is(err, errors.ErrCodeSerialization) {
				t.Errorf("ParseLoose(%q) code = %s, want SERIALIZATION", in, errors.GetCode(err))
			}
			if d := time.Since(start); d > time.Second {
				t.Errorf("ParseLoose(%q) took %s", in, d)
			}
		})
	}
}

func TestFloat64(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"3", 3},
		{"-1/4", -0.25},
		{"sqrt(2)", math.Sqrt2},
		{"3 + 2*sqrt(3)", 3 + 2*math.Sqrt(3)},
	}

	for _, tt := range tests {
		if got := mustParse(t, tt.in).Float64(); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Float64(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRadicands(t *testing.T) {
	n := mustParse(t, "1 + sqrt(12) + sqrt(5)")
	rads := n.Radicands()
	if len(rads) != 2 || rads[0].Cmp(big.NewInt(3)) != 0 || rads[1].Cmp(big.NewInt(5)) != 0 {
		t.Errorf("Radicands() = %v, want [3 5]", rads)
	}
	if !n.HasRadical(3) || n.HasRadical(12) {
		t.Error("HasRadical should report square-free radicands only")
	}
}

func TestSquareFree(t *testing.T) {
	tests := []struct {
		n, f, m int64
	}{
		{12, 2, 3},
		{72, 6, 2},
		{97, 1, 97},
		{30, 1, 30},
		{49 * 11, 7, 11},
	}

	for _, tt := range tests {
		f, m := squareFree(big.NewInt(tt.n))
		if f.Int64() != tt.f || m.Int64() != tt.m {
			t.Errorf("squareFree(%d) = (%v, %v), want (%d, %d)", tt.n, f, m, tt.f, tt.m)
		}
	}
}

func TestCoprimeBasis(t *testing.T) {
	got := coprimeBasis([]*big.Int{big.NewInt(6), big.NewInt(10), big.NewInt(15)})
	want := []int64{2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("coprimeBasis = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Int64() != want[i] {
			t.Errorf("coprimeBasis[%d] = %v, want %d", i, got[i], want[i])
		}
	}
}
