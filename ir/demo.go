package ir

// Demo pipelines shared by the command-line tools and the end-to-end
// tests. Each returns the output Funcs of a small pipeline.

// DemoPointwise is a single pointwise stage over an input.
func DemoPointwise(w, h int64) []*Func {
	in := Input("input", TypeFloat, w, h)
	out := NewFunc("bright", TypeFloat, "x", "y").
		Define(Mul(CallOf(in, V("x"), V("y")), C(2))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}

// DemoProducerConsumer is a two-stage blur-like chain.
func DemoProducerConsumer(w, h int64) []*Func {
	in := Input("input", TypeFloat, w+2, h)
	blurX := NewFunc("blur_x", TypeFloat, "x", "y").
		Define(Div(Add(Add(
			CallOf(in, V("x"), V("y")),
			CallOf(in, Add(V("x"), C(1)), V("y"))),
			CallOf(in, Add(V("x"), C(2)), V("y"))), C(3)))
	out := NewFunc("blur_y", TypeFloat, "x", "y").
		Define(CallOf(blurX, V("x"), V("y"))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}

// DemoDiamond is one producer feeding two consumers joined by a sink.
func DemoDiamond(w, h int64) []*Func {
	in := Input("input", TypeFloat, w, h)
	base := NewFunc("base", TypeFloat, "x", "y").
		Define(Add(CallOf(in, V("x"), V("y")), C(1)))
	left := NewFunc("left", TypeFloat, "x", "y").
		Define(Mul(CallOf(base, V("x"), V("y")), C(2)))
	right := NewFunc("right", TypeFloat, "x", "y").
		Define(Add(CallOf(base, V("x"), V("y")), C(7)))
	out := NewFunc("sink", TypeFloat, "x", "y").
		Define(Add(CallOf(left, V("x"), V("y")), CallOf(right, V("x"), V("y")))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}

// DemoFourStage is a four-func chain used to exercise stage freezing.
func DemoFourStage(w, h int64) []*Func {
	in := Input("input", TypeFloat, w, h)
	f0 := NewFunc("f0", TypeFloat, "x", "y").
		Define(Add(CallOf(in, V("x"), V("y")), C(1)))
	f1 := NewFunc("f1", TypeFloat, "x", "y").
		Define(Mul(CallOf(f0, V("x"), V("y")), C(3)))
	f2 := NewFunc("f2", TypeFloat, "x", "y").
		Define(Max(CallOf(f1, V("x"), V("y")), C(0)))
	out := NewFunc("f3", TypeFloat, "x", "y").
		Define(Add(CallOf(f2, V("x"), V("y")), CallOf(f1, V("x"), V("y")))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}

// DemoScan carries an update stage whose store coordinate ranges over
// a constant interval, so its region computed is wider than the region
// required.
func DemoScan(w, h int64) []*Func {
	in := Input("input", TypeFloat, w, h)
	scan := NewFunc("scan", TypeFloat, "x", "y").
		Define(CallOf(in, V("x"), V("y")))
	scan.Update(StageDef{
		RVars:     []RVar{{Name: "r", Min: 1, Extent: w - 1}},
		StoreArgs: []Expr{V("r"), V("y")},
		Values: []Expr{Add(
			CallOf(scan, Sub(V("r"), C(1)), V("y")),
			CallOf(in, V("r"), V("y")))},
	})
	out := NewFunc("scan_out", TypeFloat, "x", "y").
		Define(CallOf(scan, V("x"), V("y"))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}

// DemoBoundary accesses its input through clamped coordinates.
func DemoBoundary(w, h int64) []*Func {
	in := Input("input", TypeFloat, w, h)
	edge := NewFunc("edge", TypeFloat, "x", "y").
		Define(CallOf(in,
			ClampOf(V("x"), C(0), C(w-1)),
			ClampOf(V("y"), C(0), C(h-1))))
	out := NewFunc("edge_out", TypeFloat, "x", "y").
		Define(Sub(CallOf(edge, Add(V("x"), C(1)), V("y")), CallOf(edge, V("x"), V("y")))).
		Estimate(Estimate{0, w}, Estimate{0, h})
	return []*Func{out}
}
