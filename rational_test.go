package autosched

import "testing"

func TestRationalAddReduces(t *testing.T) {
	cases := []struct {
		a, b, want OptionalRational
	}{
		{Rational(1, 2), Rational(1, 3), Rational(5, 6)},
		{Rational(1, 4), Rational(1, 4), Rational(2, 4)}, // same denominator: no reduction
		{Rational(2, 6), Rational(1, 6), Rational(3, 6)},
		{Rational(-1, 2), Rational(1, 2), Rational(0, 2)},
		{Rational(3, 4), Rational(5, 6), Rational(19, 12)},
	}
	for _, c := range cases {
		got := c.a
		got.Add(c.b)
		if !got.Equals(c.want) {
			t.Errorf("%v + %v = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRationalAddMatchesCrossMultiplication(t *testing.T) {
	vals := []int64{-3, -1, 1, 2, 5}
	for _, a := range vals {
		for _, b := range vals {
			for _, c := range vals {
				for _, d := range vals {
					got := Rational(a, b)
					got.Add(Rational(c, d))
					want := Rational(a*d+c*b, b*d)
					if !got.Equals(want) {
						t.Fatalf("(%d/%d)+(%d/%d) = %v, want %v", a, b, c, d, got, want)
					}
				}
			}
		}
	}
}

func TestRationalUndefinedPropagation(t *testing.T) {
	undef := UndefinedRational()
	half := Rational(1, 2)

	sum := half
	sum.Add(undef)
	if sum.Exists() {
		t.Errorf("defined + undefined should be undefined, got %v", sum)
	}
	sum = undef
	sum.Add(half)
	if sum.Exists() {
		t.Errorf("undefined + defined should be undefined, got %v", sum)
	}
}

func TestRationalMulZeroShortCircuits(t *testing.T) {
	zero := Rational(0, 1)
	undef := UndefinedRational()

	if got := zero.Mul(undef); !got.EqualsInt(0) {
		t.Errorf("0 * undefined = %v, want exact zero", got)
	}
	if got := undef.Mul(zero); !got.EqualsInt(0) {
		t.Errorf("undefined * 0 = %v, want exact zero", got)
	}
	if got := undef.Mul(Rational(1, 2)); got.Exists() {
		t.Errorf("undefined * 1/2 = %v, want undefined", got)
	}
}

func TestRationalComparisonsAgainstInt(t *testing.T) {
	undef := UndefinedRational()
	for _, x := range []int64{-1, 0, 1} {
		if undef.Less(x) || undef.LessEq(x) || undef.Greater(x) || undef.GreaterEq(x) || undef.EqualsInt(x) {
			t.Errorf("undefined compared against %d should always be false", x)
		}
	}

	half := Rational(1, 2)
	if !half.Less(1) || half.Less(0) {
		t.Errorf("1/2 < 1 and !(1/2 < 0) expected")
	}
	if !half.Greater(0) || half.Greater(1) {
		t.Errorf("1/2 > 0 and !(1/2 > 1) expected")
	}

	// Negative denominator flips the cross-multiplied inequality.
	negHalf := Rational(1, -2) // value -1/2
	if !negHalf.Less(0) {
		t.Errorf("1/-2 < 0 expected")
	}
	if !negHalf.Greater(-1) {
		t.Errorf("1/-2 > -1 expected")
	}

	if !Rational(4, 2).EqualsInt(2) {
		t.Errorf("4/2 == 2 expected")
	}
}

func TestRationalEquality(t *testing.T) {
	if !Rational(1, 2).Equals(Rational(2, 4)) {
		t.Errorf("1/2 == 2/4 expected")
	}
	if Rational(1, 2).Equals(UndefinedRational()) {
		t.Errorf("1/2 == undefined should be false")
	}
	if !UndefinedRational().Equals(UndefinedRational()) {
		t.Errorf("undefined values agree on existence, so they compare equal")
	}
}
