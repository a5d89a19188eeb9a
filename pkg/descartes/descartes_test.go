package descartes

import (
	"testing"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/exact"
)

func circle(k exact.Number, re, im exact.Number) Circle {
	return Circle{Curvature: k, Center: exact.C(re, im)}
}

func sqrt(t *testing.T, n int64) exact.Number {
	t.Helper()
	r, err := exact.Int(n).Sqrt()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSolveIntegerQuadruple(t *testing.T) {
	// (-1, 2, 2, 3): outer unit circle, two halves, and a third of radius 1/3.
	outer := circle(exact.Int(-1), exact.Int(0), exact.Int(0))
	right := circle(exact.Int(2), exact.Frac(1, 2), exact.Int(0))
	top := circle(exact.Int(3), exact.Int(0), exact.Frac(2, 3))

	res, err := Solve(outer, right, top)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	tests := []struct {
		name   string
		got    Solution
		k      exact.Number
		center exact.Complex
	}{
		{"plus", res.Plus, exact.Int(6), exact.C(exact.Frac(1, 2), exact.Frac(2, 3))},
		{"minus", res.Minus, exact.Int(2), exact.C(exact.Frac(-1, 2), exact.Int(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Valid() {
				t.Fatalf("branch error: %v", tt.got.Err)
			}
			if tt.got.Curvature.Kind() != exact.KindInteger || !tt.got.Curvature.Equal(tt.k) {
				t.Errorf("curvature = %s, want integer %s", tt.got.Curvature, tt.k)
			}
			if !tt.got.Center.Equal(tt.center) {
				t.Errorf("center = %s, want %s", tt.got.Center, tt.center)
			}
		})
	}
}

func TestSolveUnitTriple(t *testing.T) {
	s3 := sqrt(t, 3)
	a := circle(exact.Int(1), exact.Int(0), exact.Int(0))
	b := circle(exact.Int(1), exact.Int(2), exact.Int(0))
	c := circle(exact.Int(1), exact.Int(1), s3)

	res, err := Solve(a, b, c)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	wantPlus := exact.Int(3).Add(s3.Add(s3))
	wantMinus := exact.Int(3).Sub(s3.Add(s3))
	if !res.Plus.Curvature.Equal(wantPlus) {
		t.Errorf("plus curvature = %s, want %s", res.Plus.Curvature, wantPlus)
	}
	if !res.Minus.Curvature.Equal(wantMinus) {
		t.Errorf("minus curvature = %s, want %s", res.Minus.Curvature, wantMinus)
	}
	if !res.Plus.Curvature.HasRadical(3) {
		t.Errorf("plus curvature %s should involve sqrt(3)", res.Plus.Curvature)
	}

	center, err := s3.Div(exact.Int(3))
	if err != nil {
		t.Fatal(err)
	}
	want := exact.C(exact.Int(1), center)
	for _, sol := range res.Branches() {
		if !sol.Center.Equal(want) {
			t.Errorf("%s center = %s, want %s", sol.Sign, sol.Center, want)
		}
	}
}

func TestSolveOrientsRoot(t *testing.T) {
	// The (-1, 2, 3) configuration shifted by -3. The principal root of the
	// cross term is the wrong one here, so a naive pairing would put the
	// curvature-6 circle at -7/6.
	shift := exact.Int(-3)
	outer := circle(exact.Int(-1), shift, exact.Int(0))
	right := circle(exact.Int(2), shift.Add(exact.Frac(1, 2)), exact.Int(0))
	top := circle(exact.Int(3), shift, exact.Frac(2, 3))

	res, err := Solve(outer, right, top)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if want := exact.C(exact.Frac(-5, 2), exact.Frac(2, 3)); !res.Plus.Center.Equal(want) {
		t.Errorf("plus center = %s, want %s", res.Plus.Center, want)
	}
	if want := exact.C(exact.Frac(-7, 2), exact.Int(0)); !res.Minus.Center.Equal(want) {
		t.Errorf("minus center = %s, want %s", res.Minus.Center, want)
	}
}

func TestSolveDegenerateBranch(t *testing.T) {
	// (1, 1, 4) touches a common line, which is the minus solution.
	a := circle(exact.Int(1), exact.Int(0), exact.Int(0))
	b := circle(exact.Int(1), exact.Int(2), exact.Int(0))
	c := circle(exact.Int(4), exact.Int(1), exact.Frac(3, 4))

	res, err := Solve(a, b, c)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Minus.Valid() {
		t.Errorf("minus branch should be degenerate, got %s", res.Minus.Curvature)
	}
	if !errors.Is(res.Minus.Err, errors.ErrCodeDivisionByZero) {
		t.Errorf("minus error = %v, want DIVISION_BY_ZERO", res.Minus.Err)
	}
	if !res.Plus.Curvature.Equal(exact.Int(12)) {
		t.Errorf("plus curvature = %s, want 12", res.Plus.Curvature)
	}
	if want := exact.C(exact.Int(1), exact.Frac(5, 12)); !res.Plus.Center.Equal(want) {
		t.Errorf("plus center = %s, want %s", res.Plus.Center, want)
	}
}

func TestSolveNoRealSolution(t *testing.T) {
	a := circle(exact.Int(1), exact.Int(0), exact.Int(0))
	b := circle(exact.Int(1), exact.Int(2), exact.Int(0))
	c := circle(exact.Int(-1), exact.Int(1), exact.Int(1))

	_, err := Solve(a, b, c)
	if !errors.Is(err, errors.ErrCodeNoRealSolution) {
		t.Errorf("Solve error = %v, want NO_REAL_SOLUTION", err)
	}
}

func TestCurvatures(t *testing.T) {
	tests := []struct {
		name        string
		k1, k2, k3  exact.Number
		plus, minus exact.Number
	}{
		{"integral", exact.Int(-1), exact.Int(2), exact.Int(3), exact.Int(6), exact.Int(2)},
		{"tangent halves", exact.Int(-1), exact.Int(2), exact.Int(2), exact.Int(3), exact.Int(3)},
		{"rational", exact.Frac(-1, 2), exact.Int(1), exact.Frac(3, 2), exact.Int(3), exact.Int(1)},
		{"enclosed pair", exact.Int(2), exact.Int(2), exact.Int(3), exact.Int(15), exact.Int(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plus, minus, err := Curvatures(tt.k1, tt.k2, tt.k3)
			if err != nil {
				t.Fatal(err)
			}
			if !plus.Equal(tt.plus) || !minus.Equal(tt.minus) {
				t.Errorf("Curvatures = (%s, %s), want (%s, %s)", plus, minus, tt.plus, tt.minus)
			}
		})
	}
}
