package exact

import "fmt"

// Complex is an exact complex number re + im·i.
type Complex struct {
	Re Number `json:"re"`
	Im Number `json:"im"`
}

// C returns re + im·i.
func C(re, im Number) Complex { return Complex{Re: re, Im: im} }

// Real returns the real part of z.
func (z Complex) Real() Number { return z.Re }

// Imag returns the imaginary part of z.
func (z Complex) Imag() Number { return z.Im }

// IsZero reports whether z == 0.
func (z Complex) IsZero() bool { return z.Re.IsZero() && z.Im.IsZero() }

// Equal reports whether z and w are the same complex number.
func (z Complex) Equal(w Complex) bool { return z.Re.Equal(w.Re) && z.Im.Equal(w.Im) }

func (z Complex) String() string {
	return fmt.Sprintf("(%s, %s)", z.Re, z.Im)
}

// Add returns z + w.
func (z Complex) Add(w Complex) Complex { return Complex{z.Re.Add(w.Re), z.Im.Add(w.Im)} }

// Sub returns z - w.
func (z Complex) Sub(w Complex) Complex { return Complex{z.Re.Sub(w.Re), z.Im.Sub(w.Im)} }

// Neg returns -z.
func (z Complex) Neg() Complex { return Complex{z.Re.Neg(), z.Im.Neg()} }

// Conj returns the complex conjugate of z.
func (z Complex) Conj() Complex { return Complex{z.Re, z.Im.Neg()} }

// Mul returns z·w.
func (z Complex) Mul(w Complex) Complex {
	return Complex{
		Re: z.Re.Mul(w.Re).Sub(z.Im.Mul(w.Im)),
		Im: z.Re.Mul(w.Im).Add(z.Im.Mul(w.Re)),
	}
}

// Scale returns k·z for a real k.
func (z Complex) Scale(k Number) Complex { return Complex{z.Re.Mul(k), z.Im.Mul(k)} }

// DivReal returns z/k for a real k.
func (z Complex) DivReal(k Number) (Complex, error) {
	inv, err := k.Inv()
	if err != nil {
		return Complex{}, err
	}
	return z.Scale(inv), nil
}

// Div returns z/w.
func (z Complex) Div(w Complex) (Complex, error) {
	return z.Mul(w.Conj()).DivReal(w.Abs2())
}

// Abs2 returns |z|².
func (z Complex) Abs2() Number {
	return z.Re.Mul(z.Re).Add(z.Im.Mul(z.Im))
}

// Abs returns |z|.
func (z Complex) Abs() (Number, error) {
	return z.Abs2().Sqrt()
}

// Complex128 returns the nearest complex128 to z.
func (z Complex) Complex128() complex128 {
	return complex(z.Re.Float64(), z.Im.Float64())
}

// ComplexSqrt returns the principal square root of z:
//
//	√z = √((|z| + a)/2) + i·sign(b)·√((|z| - a)/2)   for z = a + b·i
//
// Parts are exact, and rational whenever the root is.
func ComplexSqrt(z Complex) (Complex, error) {
	if z.Im.IsZero() {
		if z.Re.Sign() >= 0 {
			re, err := z.Re.Sqrt()
			return Complex{Re: re}, err
		}
		im, err := z.Re.Neg().Sqrt()
		return Complex{Im: im}, err
	}

	mod, err := z.Abs()
	if err != nil {
		return Complex{}, err
	}
	u, err := mod.Add(z.Re).Half().Sqrt()
	if err != nil {
		return Complex{}, err
	}
	// u > 0 because b ≠ 0 forces |z| > -a.
	v, err := z.Im.Div(u.Add(u))
	if err != nil {
		return Complex{}, err
	}
	return Complex{Re: u, Im: v}, nil
}
