package autosched

import "math/bits"

// OptionalRational is a rational number used when analyzing memory
// dependencies. The value may not exist: a zero denominator means the
// quantity is unknown or non-rational, and all comparisons of it
// against an integer return false.
type OptionalRational struct {
	Num, Den int64
}

// Rational returns an OptionalRational with the given numerator and
// denominator.
func Rational(num, den int64) OptionalRational {
	return OptionalRational{Num: num, Den: den}
}

// UndefinedRational returns the non-existent rational (0, 0).
func UndefinedRational() OptionalRational {
	return OptionalRational{}
}

// Exists reports whether the value is defined.
func (r OptionalRational) Exists() bool {
	return r.Den != 0
}

// checkedMul multiplies two int64s, raising an internal error on
// overflow. Rational arithmetic must not silently truncate.
func checkedMul(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(abs64(a)), uint64(abs64(b)))
	if hi != 0 || lo > 1<<62 {
		internalErrorf("overflow in rational arithmetic: %d * %d", a, b)
	}
	return a * b
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func gcd64(a, b int64) int64 {
	a, b = abs64(a), abs64(b)
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm64(a, b int64) int64 {
	g := gcd64(a, b)
	return checkedMul(a/g, b)
}

// Add adds other into r. If either side does not exist, the result
// does not exist. Equal denominators just add the numerators; otherwise
// the sum over the common denominator is reduced by GCD.
func (r *OptionalRational) Add(other OptionalRational) {
	if r.Den == 0 || other.Den == 0 {
		r.Num, r.Den = 0, 0
		return
	}
	if r.Den == other.Den {
		r.Num += other.Num
		return
	}
	l := lcm64(r.Den, other.Den)
	num := checkedMul(r.Num, l/r.Den) + checkedMul(other.Num, l/other.Den)
	g := gcd64(num, l)
	if g == 0 {
		// gcd64 is 0 only when num and l are both 0; keep the
		// denominator so the value exists.
		r.Num, r.Den = 0, l
		return
	}
	r.Num, r.Den = num/g, l/g
}

// MulInt scales r by an integer factor. Exact zeros are preserved.
func (r OptionalRational) MulInt(factor int64) OptionalRational {
	if r.EqualsInt(0) {
		return r
	}
	return OptionalRational{Num: checkedMul(r.Num, factor), Den: r.Den}
}

// Mul multiplies two rationals. A zero on either side short-circuits
// so that exact zeros survive multiplication with undefined values.
func (r OptionalRational) Mul(other OptionalRational) OptionalRational {
	if r.EqualsInt(0) {
		return r
	}
	if other.EqualsInt(0) {
		return other
	}
	return OptionalRational{
		Num: checkedMul(r.Num, other.Num),
		Den: checkedMul(r.Den, other.Den),
	}
}

// Because the value is optional, there is no total ordering. Each
// comparison returns false when the value does not exist, so r.Less(x)
// is not the negation of r.GreaterEq(x).

// Less reports r < x.
func (r OptionalRational) Less(x int64) bool {
	if r.Den == 0 {
		return false
	}
	if r.Den > 0 {
		return r.Num < checkedMul(x, r.Den)
	}
	return r.Num > checkedMul(x, r.Den)
}

// LessEq reports r <= x.
func (r OptionalRational) LessEq(x int64) bool {
	if r.Den == 0 {
		return false
	}
	if r.Den > 0 {
		return r.Num <= checkedMul(x, r.Den)
	}
	return r.Num >= checkedMul(x, r.Den)
}

// Greater reports r > x.
func (r OptionalRational) Greater(x int64) bool {
	if !r.Exists() {
		return false
	}
	return !r.LessEq(x)
}

// GreaterEq reports r >= x.
func (r OptionalRational) GreaterEq(x int64) bool {
	if !r.Exists() {
		return false
	}
	return !r.Less(x)
}

// EqualsInt reports r == x. Requires existence.
func (r OptionalRational) EqualsInt(x int64) bool {
	return r.Exists() && r.Num == checkedMul(x, r.Den)
}

// Equals reports cross-multiplicative equality. Both sides must agree
// on existence.
func (r OptionalRational) Equals(other OptionalRational) bool {
	if r.Exists() != other.Exists() {
		return false
	}
	return checkedMul(r.Num, other.Den) == checkedMul(r.Den, other.Num)
}
