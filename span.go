package autosched

import "math"

// Span is a single-dimensional integer interval. For each dimension of
// a bounds box we track the min and max, and also whether the extent
// is known to be constant at compile time.
type Span struct {
	min, max       int64
	constantExtent bool
}

// NewSpan returns the span [min, max] with the given constant-extent flag.
func NewSpan(min, max int64, constantExtent bool) Span {
	return Span{min: min, max: max, constantExtent: constantExtent}
}

// EmptySpan returns the identity under union: an inverted span that
// any union replaces.
func EmptySpan() Span {
	return Span{min: math.MaxInt64, max: math.MinInt64, constantExtent: true}
}

func (s Span) Min() int64 { return s.min }
func (s Span) Max() int64 { return s.max }

// Extent returns the number of points in the span.
func (s Span) Extent() int64 { return s.max - s.min + 1 }

// ConstantExtent reports whether the extent is known constant.
func (s Span) ConstantExtent() bool { return s.constantExtent }

// UnionWith widens s to cover other. The constant-extent flags AND.
func (s *Span) UnionWith(other Span) {
	if other.min < s.min {
		s.min = other.min
	}
	if other.max > s.max {
		s.max = other.max
	}
	s.constantExtent = s.constantExtent && other.constantExtent
}

// SetExtent resizes the span in place, preserving the min.
func (s *Span) SetExtent(e int64) {
	s.max = s.min + e - 1
}

// Translate shifts the span, preserving the extent.
func (s *Span) Translate(x int64) {
	s.min += x
	s.max += x
}
