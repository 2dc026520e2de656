// Package ir is the minimal pipeline front end consumed by the DAG
// analysis: symbolic integer expressions, intervals, and function
// definitions. It implements just the surface the autoscheduler
// queries — substitution, evaluation, interval bounds, and affine
// derivatives — not a general compiler IR.
package ir

import (
	"fmt"
	"strings"
)

// Expr is a symbolic integer expression.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Var is a free variable, referenced by name.
type Var struct {
	Name string
}

// Const is an integer immediate.
type Const struct {
	Value int64
}

// BinOp enumerates binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMin
	OpMax
)

// Bin is a binary operation on two expressions. Div and Mod follow
// Euclidean semantics on the evaluator. Div is treated as non-affine
// unless the divisor is constant; Mod is always non-affine.
type Bin struct {
	Op   BinOp
	A, B Expr
}

// Clamp limits X to [Lo, Hi]. It is how boundary conditions appear in
// producer coordinates.
type Clamp struct {
	X, Lo, Hi Expr
}

// Call is a point access to another pipeline function.
type Call struct {
	Func *Func
	Args []Expr
}

func (Var) isExpr()   {}
func (Const) isExpr() {}
func (Bin) isExpr()   {}
func (Clamp) isExpr() {}
func (Call) isExpr()  {}

func (v Var) String() string   { return v.Name }
func (c Const) String() string { return fmt.Sprintf("%d", c.Value) }

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	}
	return "?"
}

func (b Bin) String() string {
	if b.Op == OpMin || b.Op == OpMax {
		return fmt.Sprintf("%s(%s, %s)", b.Op, b.A, b.B)
	}
	return fmt.Sprintf("(%s %s %s)", b.A, b.Op, b.B)
}

func (c Clamp) String() string {
	return fmt.Sprintf("clamp(%s, %s, %s)", c.X, c.Lo, c.Hi)
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

// Convenience constructors.

func V(name string) Expr      { return Var{Name: name} }
func C(v int64) Expr          { return Const{Value: v} }
func Add(a, b Expr) Expr      { return Bin{Op: OpAdd, A: a, B: b} }
func Sub(a, b Expr) Expr      { return Bin{Op: OpSub, A: a, B: b} }
func Mul(a, b Expr) Expr      { return Bin{Op: OpMul, A: a, B: b} }
func Div(a, b Expr) Expr      { return Bin{Op: OpDiv, A: a, B: b} }
func Mod(a, b Expr) Expr      { return Bin{Op: OpMod, A: a, B: b} }
func Min(a, b Expr) Expr      { return Bin{Op: OpMin, A: a, B: b} }
func Max(a, b Expr) Expr      { return Bin{Op: OpMax, A: a, B: b} }
func ClampOf(x, lo, hi Expr) Expr {
	return Clamp{X: x, Lo: lo, Hi: hi}
}
func CallOf(f *Func, args ...Expr) Expr { return Call{Func: f, Args: args} }

func euclidDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		// Round so the remainder is non-negative.
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

func euclidMod(a, b int64) int64 {
	return a - euclidDiv(a, b)*b
}

// Eval evaluates e with the given variable bindings. The second result
// is false if a variable is unbound, a divisor is zero, or the
// expression contains a Call (point accesses have no scalar value).
func Eval(e Expr, env map[string]int64) (int64, bool) {
	switch t := e.(type) {
	case Var:
		v, ok := env[t.Name]
		return v, ok
	case Const:
		return t.Value, true
	case Bin:
		a, okA := Eval(t.A, env)
		b, okB := Eval(t.B, env)
		if !okA || !okB {
			return 0, false
		}
		switch t.Op {
		case OpAdd:
			return a + b, true
		case OpSub:
			return a - b, true
		case OpMul:
			return a * b, true
		case OpDiv:
			if b == 0 {
				return 0, false
			}
			return euclidDiv(a, b), true
		case OpMod:
			if b == 0 {
				return 0, false
			}
			return euclidMod(a, b), true
		case OpMin:
			if a < b {
				return a, true
			}
			return b, true
		case OpMax:
			if a > b {
				return a, true
			}
			return b, true
		}
		return 0, false
	case Clamp:
		x, okX := Eval(t.X, env)
		lo, okLo := Eval(t.Lo, env)
		hi, okHi := Eval(t.Hi, env)
		if !okX || !okLo || !okHi {
			return 0, false
		}
		if x < lo {
			x = lo
		}
		if x > hi {
			x = hi
		}
		return x, true
	default:
		return 0, false
	}
}

// Substitute replaces free variables by expressions.
func Substitute(e Expr, bindings map[string]Expr) Expr {
	switch t := e.(type) {
	case Var:
		if r, ok := bindings[t.Name]; ok {
			return r
		}
		return t
	case Const:
		return t
	case Bin:
		return Bin{Op: t.Op, A: Substitute(t.A, bindings), B: Substitute(t.B, bindings)}
	case Clamp:
		return Clamp{
			X:  Substitute(t.X, bindings),
			Lo: Substitute(t.Lo, bindings),
			Hi: Substitute(t.Hi, bindings),
		}
	case Call:
		args := make([]Expr, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, bindings)
		}
		return Call{Func: t.Func, Args: args}
	default:
		return e
	}
}

// Simplify folds constants and applies the cheap identities the DAG
// analysis relies on to detect its fast paths.
func Simplify(e Expr) Expr {
	switch t := e.(type) {
	case Bin:
		a := Simplify(t.A)
		b := Simplify(t.B)
		ca, aConst := a.(Const)
		cb, bConst := b.(Const)
		if aConst && bConst {
			if v, ok := Eval(Bin{Op: t.Op, A: ca, B: cb}, nil); ok {
				return Const{Value: v}
			}
		}
		switch t.Op {
		case OpAdd:
			if aConst && ca.Value == 0 {
				return b
			}
			if bConst && cb.Value == 0 {
				return a
			}
		case OpSub:
			if bConst && cb.Value == 0 {
				return a
			}
		case OpMul:
			if aConst && ca.Value == 1 {
				return b
			}
			if bConst && cb.Value == 1 {
				return a
			}
			if (aConst && ca.Value == 0) || (bConst && cb.Value == 0) {
				return Const{Value: 0}
			}
		case OpDiv:
			if bConst && cb.Value == 1 {
				return a
			}
		case OpMin, OpMax:
			if exprEqual(a, b) {
				return a
			}
		}
		return Bin{Op: t.Op, A: a, B: b}
	case Clamp:
		return Clamp{X: Simplify(t.X), Lo: Simplify(t.Lo), Hi: Simplify(t.Hi)}
	case Call:
		args := make([]Expr, len(t.Args))
		for i, arg := range t.Args {
			args[i] = Simplify(arg)
		}
		return Call{Func: t.Func, Args: args}
	default:
		return e
	}
}

func exprEqual(a, b Expr) bool {
	return a.String() == b.String()
}

// FreeVars appends the free variable names of e into vars.
func FreeVars(e Expr, vars map[string]bool) {
	switch t := e.(type) {
	case Var:
		vars[t.Name] = true
	case Bin:
		FreeVars(t.A, vars)
		FreeVars(t.B, vars)
	case Clamp:
		FreeVars(t.X, vars)
		FreeVars(t.Lo, vars)
		FreeVars(t.Hi, vars)
	case Call:
		for _, a := range t.Args {
			FreeVars(a, vars)
		}
	}
}

// Calls appends every Call node in e, left to right.
func Calls(e Expr, out []Call) []Call {
	switch t := e.(type) {
	case Bin:
		out = Calls(t.A, out)
		out = Calls(t.B, out)
	case Clamp:
		out = Calls(t.X, out)
		out = Calls(t.Lo, out)
		out = Calls(t.Hi, out)
	case Call:
		for _, a := range t.Args {
			out = Calls(a, out)
		}
		out = append(out, t)
	}
	return out
}

// Derivative returns the partial derivative of e with respect to v as
// a (num, den) rational. den == 0 means the derivative is unknown or
// non-rational: Min, Max, Clamp and Mod terms that mention v, Calls,
// products of two non-constant terms, and quotients by a non-constant
// divisor all produce an unknown derivative.
func Derivative(e Expr, v string) (num, den int64) {
	switch t := e.(type) {
	case Var:
		if t.Name == v {
			return 1, 1
		}
		return 0, 1
	case Const:
		return 0, 1
	case Bin:
		switch t.Op {
		case OpAdd, OpSub:
			an, ad := Derivative(t.A, v)
			bn, bd := Derivative(t.B, v)
			if ad == 0 || bd == 0 {
				return 0, 0
			}
			if t.Op == OpSub {
				bn = -bn
			}
			// num/den = an/ad + bn/bd
			return an*bd + bn*ad, ad * bd
		case OpMul:
			if c, ok := t.A.(Const); ok {
				n, d := Derivative(t.B, v)
				return n * c.Value, d
			}
			if c, ok := t.B.(Const); ok {
				n, d := Derivative(t.A, v)
				return n * c.Value, d
			}
			return 0, 0
		case OpDiv:
			if c, ok := t.B.(Const); ok && c.Value != 0 {
				n, d := Derivative(t.A, v)
				return n, d * c.Value
			}
			return 0, 0
		default:
			// Mod, Min, Max: piecewise, treated as unknown unless
			// the term does not mention v at all.
			free := map[string]bool{}
			FreeVars(t, free)
			if !free[v] {
				return 0, 1
			}
			return 0, 0
		}
	case Clamp:
		free := map[string]bool{}
		FreeVars(t, free)
		if !free[v] {
			return 0, 1
		}
		return 0, 0
	default:
		return 0, 0
	}
}
