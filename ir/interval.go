package ir

// Interval is a symbolic inclusive interval [Min, Max].
type Interval struct {
	Min, Max Expr
}

// Point returns the degenerate interval [e, e].
func Point(e Expr) Interval {
	return Interval{Min: e, Max: e}
}

// ConstInterval returns [lo, hi] as constants.
func ConstInterval(lo, hi int64) Interval {
	return Interval{Min: C(lo), Max: C(hi)}
}

// IsConst reports whether both ends are integer immediates, and
// returns them if so.
func (i Interval) IsConst() (lo, hi int64, ok bool) {
	cl, okL := i.Min.(Const)
	ch, okH := i.Max.(Const)
	if !okL || !okH {
		return 0, 0, false
	}
	return cl.Value, ch.Value, true
}

// Bounds computes a symbolic interval containing the values of e when
// each scope variable ranges over its interval. Variables not in
// scope are treated as parameters: their interval is the point [v, v].
func Bounds(e Expr, scope map[string]Interval) Interval {
	switch t := e.(type) {
	case Var:
		if iv, ok := scope[t.Name]; ok {
			return iv
		}
		return Point(t)
	case Const:
		return Point(t)
	case Bin:
		a := Bounds(t.A, scope)
		b := Bounds(t.B, scope)
		switch t.Op {
		case OpAdd:
			return Interval{
				Min: Simplify(Add(a.Min, b.Min)),
				Max: Simplify(Add(a.Max, b.Max)),
			}
		case OpSub:
			return Interval{
				Min: Simplify(Sub(a.Min, b.Max)),
				Max: Simplify(Sub(a.Max, b.Min)),
			}
		case OpMul:
			if c, ok := t.B.(Const); ok {
				return scaleInterval(a, c.Value, OpMul)
			}
			if c, ok := t.A.(Const); ok {
				return scaleInterval(b, c.Value, OpMul)
			}
			return cornerInterval(t.Op, a, b)
		case OpDiv:
			if c, ok := t.B.(Const); ok && c.Value != 0 {
				return scaleInterval(a, c.Value, OpDiv)
			}
			return cornerInterval(t.Op, a, b)
		case OpMod:
			if c, ok := t.B.(Const); ok && c.Value > 0 {
				return ConstInterval(0, c.Value-1)
			}
			return cornerInterval(t.Op, a, b)
		case OpMin:
			return Interval{
				Min: Simplify(Min(a.Min, b.Min)),
				Max: Simplify(Min(a.Max, b.Max)),
			}
		case OpMax:
			return Interval{
				Min: Simplify(Max(a.Min, b.Min)),
				Max: Simplify(Max(a.Max, b.Max)),
			}
		}
		return Point(t)
	case Clamp:
		x := Bounds(t.X, scope)
		lo := Bounds(t.Lo, scope)
		hi := Bounds(t.Hi, scope)
		return Interval{
			Min: Simplify(Max(lo.Min, Min(x.Min, hi.Max))),
			Max: Simplify(Min(hi.Max, Max(x.Max, lo.Min))),
		}
	default:
		return Point(e)
	}
}

// scaleInterval applies (* c) or (/ c), swapping the ends when c < 0.
func scaleInterval(iv Interval, c int64, op BinOp) Interval {
	lo := Simplify(Bin{Op: op, A: iv.Min, B: C(c)})
	hi := Simplify(Bin{Op: op, A: iv.Max, B: C(c)})
	if c < 0 {
		lo, hi = hi, lo
	}
	return Interval{Min: lo, Max: hi}
}

// cornerInterval is the conservative fallback for non-affine binary
// forms: evaluate the operator at the four interval corners and take
// the elementwise min/max.
func cornerInterval(op BinOp, a, b Interval) Interval {
	corners := []Expr{
		Bin{Op: op, A: a.Min, B: b.Min},
		Bin{Op: op, A: a.Min, B: b.Max},
		Bin{Op: op, A: a.Max, B: b.Min},
		Bin{Op: op, A: a.Max, B: b.Max},
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		lo = Min(lo, c)
		hi = Max(hi, c)
	}
	return Interval{Min: Simplify(lo), Max: Simplify(hi)}
}
