package autosched

import (
	"fmt"
	"io"
	"strings"

	"github.com/pipelinekit/autosched/ir"
)

// FunctionDAG is our representation of a pipeline: one Node per
// function, one Stage per definition, and one Edge per
// producer-consumer relationship. The nodes and edges are stored in
// reverse realization order, so walking them in order visits consumers
// before producers. The DAG is built once, up front, and is immutable
// for the whole search.
type FunctionDAG struct {
	Nodes []*Node
	Edges []*Edge

	NumNonInputNodes int

	// StageIDToNode maps a dense stage id back to its owning node.
	StageIDToNode map[int]*Node
}

// SymbolicInterval is the pair of fresh variables denoting a symbolic
// region of a node in one dimension.
type SymbolicInterval struct {
	Min, Max ir.Expr
}

// RegionComputedInfo describes the region computed of one dimension in
// terms of the region required, with precomputed fast paths for the
// common cases.
type RegionComputedInfo struct {
	// In is the interval in its full symbolic glory, in terms of the
	// region-required variables. Used in the general case.
	In ir.Interval

	EqualsRequired                     bool
	EqualsUnionOfRequiredWithConstants bool
	CMin, CMax                         int64
}

// Loop is metadata about one symbolic loop in a stage's default loop
// nest.
type Loop struct {
	Var        string
	Pure, RVar bool
	Min, Max   ir.Expr

	// PureDim is the pure dimension this loop corresponds to, or -1
	// for an rvar.
	PureDim int

	// Fast paths.
	EqualsRegionComputed bool
	RegionComputedDim    int
	BoundsAreConstant    bool
	CMin, CMax           int64

	// Accessor is a persistent fragment of source for getting this
	// loop variable from its owner.
	Accessor string
}

// Stage is one definition of a Node's function.
type Stage struct {
	Node *Node

	// Index of the stage. 0 = pure.
	Index int

	// Loop is the default loop nest computing this stage, innermost
	// first.
	Loop                   []Loop
	LoopNestAllCommonCases bool

	// VectorSize is the natural vector width for the narrowest type
	// used by the stage.
	VectorSize int

	Features PipelineFeatures

	Name          string
	SanitizedName string

	// Dense ids for perfect hashing on stages.
	ID, MaxID int

	StoreJacobian *LoadJacobian

	IncomingEdges []*Edge

	// Dependencies is indexed by Node id: true iff this stage is
	// transitively downstream of that node.
	Dependencies []bool
}

// DownstreamOf reports whether the stage transitively consumes n.
func (s *Stage) DownstreamOf(n *Node) bool {
	return s.Dependencies[n.ID]
}

// Node represents a single pipeline function.
type Node struct {
	dag *FunctionDAG

	Func *ir.Func

	// BytesPerPoint stored.
	BytesPerPoint float64

	// RegionRequired holds the min/max variables denoting a symbolic
	// region of this node, one interval per dimension.
	RegionRequired []SymbolicInterval

	// EstimatedRegionRequired is a concrete region from the user's
	// bound estimates. Only defined for outputs and inputs.
	EstimatedRegionRequired []Span

	RegionComputed               []RegionComputedInfo
	RegionComputedAllCommonCases bool

	Stages []*Stage

	OutgoingEdges []*Edge

	// VectorSize is the max across stages.
	VectorSize int

	// Dense ids, consecutive from zero per pipeline.
	ID, MaxID int

	Dimensions int

	IsWrapper           bool
	IsInput             bool
	IsOutput            bool
	IsPointwise         bool
	IsBoundaryCondition bool

	BoundsMemoryLayout *Layout
}

// MakeBound returns a fresh BoundContents with this node's layout.
func (n *Node) MakeBound() *BoundContents {
	return n.BoundsMemoryLayout.Make()
}

// BoundInfo is a bound expression for one side of one producer
// dimension, with precomputed affine decomposition.
type BoundInfo struct {
	Expr ir.Expr

	// Affine decomposition: Coeff * consumer_loop_var + Constant,
	// where the variable is the min or max of loop ConsumerDim.
	Coeff, Constant int64
	ConsumerDim     int
	Affine, UsesMax bool
}

// Edge is a producer-consumer relationship.
type Edge struct {
	// Bounds is the memory footprint on the producer required by the
	// consumer: a (min, max) pair per producer dimension, in terms of
	// the consumer stage's symbolic loop variables.
	Bounds [][2]BoundInfo

	Producer *Node
	Consumer *Stage

	// Calls the consumer makes to the producer, per point in the
	// consumer's loop nest.
	Calls int

	AllBoundsAffine bool

	LoadJacobians []*LoadJacobian
}

// AllLoadJacobianCoeffsExist reports whether every coefficient of
// every Jacobian on the edge exists.
func (e *Edge) AllLoadJacobianCoeffsExist() bool {
	for _, j := range e.LoadJacobians {
		if !j.AllCoeffsExist() {
			return false
		}
	}
	return true
}

// AddLoadJacobian records a load, deduplicating against the existing
// Jacobians by merge.
func (e *Edge) AddLoadJacobian(j *LoadJacobian) {
	for _, existing := range e.LoadJacobians {
		if existing.Merge(j) {
			return
		}
	}
	e.LoadJacobians = append(e.LoadJacobians, j)
}

// Symbolic variable naming. These only need to be stable and unique
// within a pipeline.

func requiredMinVar(f *ir.Func, d int) string { return fmt.Sprintf("%s.v%d.min", f.Name, d) }
func requiredMaxVar(f *ir.Func, d int) string { return fmt.Sprintf("%s.v%d.max", f.Name, d) }
func computedMinVar(f *ir.Func, d int) string { return fmt.Sprintf("%s.c%d.min", f.Name, d) }
func computedMaxVar(f *ir.Func, d int) string { return fmt.Sprintf("%s.c%d.max", f.Name, d) }
func loopMinVar(s *Stage, j int) string       { return fmt.Sprintf("%s.l%d.min", s.Name, j) }
func loopMaxVar(s *Stage, j int) string       { return fmt.Sprintf("%s.l%d.max", s.Name, j) }

// sanitizeName rewrites a stage name into an identifier.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '.' || r == '(' || r == ')' || r == '$' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewFunctionDAG analyzes a pipeline given its output functions and a
// target, and builds the frozen DAG the search runs over.
func NewFunctionDAG(outputs []*ir.Func, params MachineParams, target Target) *FunctionDAG {
	dag := &FunctionDAG{StageIDToNode: map[int]*Node{}}

	// Step 1: topological order. A post-order walk of callees emits
	// producers first (realization order); we store the reverse so
	// consumers come first.
	var order []*ir.Func
	visited := map[*ir.Func]bool{}
	onStack := map[*ir.Func]bool{}
	isOutput := map[*ir.Func]bool{}
	var visit func(f *ir.Func)
	visit = func(f *ir.Func) {
		if visited[f] {
			return
		}
		internalAssert(!onStack[f], "pipeline contains a cycle through %s", f.Name)
		onStack[f] = true
		for _, st := range f.Stages {
			for _, v := range st.Values {
				for _, c := range ir.Calls(v, nil) {
					if c.Func != f {
						visit(c.Func)
					}
				}
			}
		}
		onStack[f] = false
		visited[f] = true
		order = append(order, f)
	}
	for _, f := range outputs {
		isOutput[f] = true
		visit(f)
	}
	// Reverse into realization-reversed (consumers first) order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	funcToNode := map[*ir.Func]*Node{}
	for id, f := range order {
		n := &Node{
			dag:           dag,
			Func:          f,
			BytesPerPoint: float64(f.Type.Bytes()),
			ID:            id,
			Dimensions:    len(f.Dims),
			IsInput:       f.IsInput,
			IsOutput:      isOutput[f],
		}
		dag.Nodes = append(dag.Nodes, n)
		funcToNode[f] = n
		if !f.IsInput {
			dag.NumNonInputNodes++
		}
	}
	for _, n := range dag.Nodes {
		n.MaxID = len(dag.Nodes)
	}

	// Steps 2-4 per node: symbolic regions, computed regions, loops.
	stageID := 0
	for _, n := range dag.Nodes {
		buildSymbolicRegions(n)
		buildRegionComputed(n)
		buildStages(n, target, &stageID)
		loopSizes := make([]int, len(n.Stages))
		for i, s := range n.Stages {
			loopSizes[i] = len(s.Loop)
		}
		n.BoundsMemoryLayout = NewLayout(n.Dimensions, loopSizes)
	}
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			s.MaxID = stageID
			dag.StageIDToNode[s.ID] = n
		}
	}

	// Step 5: edges and Jacobians.
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			buildEdges(dag, s, funcToNode)
		}
	}

	// Step 6: dependency bitvectors. Producers are stored after their
	// consumers, so walking the node list backwards completes each
	// producer before any of its consumers.
	for i := len(dag.Nodes) - 1; i >= 0; i-- {
		for _, s := range dag.Nodes[i].Stages {
			s.Dependencies = make([]bool, len(dag.Nodes))
			for _, e := range s.IncomingEdges {
				s.Dependencies[e.Producer.ID] = true
				for _, ps := range e.Producer.Stages {
					for id, dep := range ps.Dependencies {
						if dep {
							s.Dependencies[id] = true
						}
					}
				}
			}
		}
	}

	// Step 7: featurization and derived node flags.
	dag.featurize()

	return dag
}

func buildSymbolicRegions(n *Node) {
	f := n.Func
	for d := 0; d < n.Dimensions; d++ {
		n.RegionRequired = append(n.RegionRequired, SymbolicInterval{
			Min: ir.V(requiredMinVar(f, d)),
			Max: ir.V(requiredMaxVar(f, d)),
		})
	}
	if n.IsOutput || n.IsInput {
		internalAssert(len(f.Estimates) == n.Dimensions,
			"node %s needs a bounds estimate for each of its %d dimensions", f.Name, n.Dimensions)
		for _, e := range f.Estimates {
			n.EstimatedRegionRequired = append(n.EstimatedRegionRequired,
				NewSpan(e.Min, e.Min+e.Extent-1, true))
		}
	}
}

// buildRegionComputed derives each dimension's computed interval from
// the function's definitions. An update stage that stores at a
// constant-ranged coordinate extends the computed region in that
// dimension (the IIR case); everything else computes exactly what is
// required.
func buildRegionComputed(n *Node) {
	f := n.Func
	n.RegionComputedAllCommonCases = true
	for d := 0; d < n.Dimensions; d++ {
		info := RegionComputedInfo{
			In: ir.Interval{
				Min: ir.V(requiredMinVar(f, d)),
				Max: ir.V(requiredMaxVar(f, d)),
			},
			EqualsRequired: true,
		}
		for si, st := range f.Stages {
			if si == 0 || st.StoreArgs == nil {
				continue
			}
			arg := st.StoreArgs[d]
			if v, ok := arg.(ir.Var); ok && v.Name == f.Dims[d] {
				continue
			}
			// Bound the store coordinate over the reduction domain.
			// Pure variables range over the region required, so the
			// general-path expressions stay in terms of the required
			// region's symbols.
			scope := map[string]ir.Interval{}
			for _, rv := range st.RVars {
				scope[rv.Name] = ir.ConstInterval(rv.Min, rv.Min+rv.Extent-1)
			}
			for dd, dim := range f.Dims {
				scope[dim] = ir.Interval{
					Min: ir.V(requiredMinVar(f, dd)),
					Max: ir.V(requiredMaxVar(f, dd)),
				}
			}
			iv := ir.Bounds(arg, scope)
			if lo, hi, ok := iv.IsConst(); ok {
				if info.EqualsRequired {
					info.EqualsRequired = false
					info.EqualsUnionOfRequiredWithConstants = true
					info.CMin, info.CMax = lo, hi
				} else if info.EqualsUnionOfRequiredWithConstants {
					if lo < info.CMin {
						info.CMin = lo
					}
					if hi > info.CMax {
						info.CMax = hi
					}
				}
				info.In = ir.Interval{
					Min: ir.Simplify(ir.Min(info.In.Min, ir.C(info.CMin))),
					Max: ir.Simplify(ir.Max(info.In.Max, ir.C(info.CMax))),
				}
			} else {
				info.EqualsRequired = false
				info.EqualsUnionOfRequiredWithConstants = false
				info.In = ir.Interval{
					Min: ir.Simplify(ir.Min(info.In.Min, iv.Min)),
					Max: ir.Simplify(ir.Max(info.In.Max, iv.Max)),
				}
			}
		}
		if !info.EqualsRequired && !info.EqualsUnionOfRequiredWithConstants {
			n.RegionComputedAllCommonCases = false
		}
		n.RegionComputed = append(n.RegionComputed, info)
	}
}

// buildStages enumerates each stage's loops innermost-first and
// records the fast-path metadata.
func buildStages(n *Node, target Target, stageID *int) {
	f := n.Func
	for si, st := range f.Stages {
		s := &Stage{
			Node:       n,
			Index:      si,
			VectorSize: target.NaturalVectorSize(f.Type.Bytes()),
		}
		if si == 0 {
			s.Name = f.Name
		} else {
			s.Name = fmt.Sprintf("%s.update(%d)", f.Name, si-1)
		}
		s.SanitizedName = sanitizeName(s.Name)
		s.ID = *stageID
		*stageID++

		// Reduction loops come innermost.
		s.LoopNestAllCommonCases = true
		for _, rv := range st.RVars {
			s.Loop = append(s.Loop, Loop{
				Var:               rv.Name,
				RVar:              true,
				PureDim:           -1,
				Min:               ir.C(rv.Min),
				Max:               ir.C(rv.Min + rv.Extent - 1),
				BoundsAreConstant: true,
				CMin:              rv.Min,
				CMax:              rv.Min + rv.Extent - 1,
				Accessor:          fmt.Sprintf("%s.%s", s.Name, rv.Name),
			})
		}
		for d, dim := range f.Dims {
			s.Loop = append(s.Loop, Loop{
				Var:                  dim,
				Pure:                 true,
				PureDim:              d,
				Min:                  ir.V(computedMinVar(f, d)),
				Max:                  ir.V(computedMaxVar(f, d)),
				EqualsRegionComputed: true,
				RegionComputedDim:    d,
				Accessor:             fmt.Sprintf("%s.%s", s.Name, dim),
			})
		}
		for _, l := range s.Loop {
			if !l.EqualsRegionComputed && !l.BoundsAreConstant {
				s.LoopNestAllCommonCases = false
			}
		}

		// The store Jacobian: derivative of the store coordinates
		// with respect to the stage's loop variables.
		storeArgs := st.StoreArgs
		if storeArgs == nil {
			storeArgs = f.PureArgs()
		}
		sj := NewLoadJacobian(n.Dimensions, len(s.Loop), 1)
		for d, arg := range storeArgs {
			for j, l := range s.Loop {
				num, den := ir.Derivative(arg, l.Var)
				sj.Set(d, j, Rational(num, den))
			}
		}
		s.StoreJacobian = sj

		n.Stages = append(n.Stages, s)
		if s.VectorSize > n.VectorSize {
			n.VectorSize = s.VectorSize
		}
	}
}

// buildEdges creates the edges into one consumer stage, computing the
// per-dimension bound expressions and the load Jacobians.
func buildEdges(dag *FunctionDAG, s *Stage, funcToNode map[*ir.Func]*Node) {
	f := s.Node.Func
	st := f.Stages[s.Index]

	// The symbolic scope for bounding producer coordinates: each loop
	// variable ranges over its symbolic loop interval.
	scope := map[string]ir.Interval{}
	for j, l := range s.Loop {
		scope[l.Var] = ir.Interval{
			Min: ir.V(loopMinVar(s, j)),
			Max: ir.V(loopMaxVar(s, j)),
		}
	}

	// Group call sites by producer, preserving discovery order.
	var producers []*ir.Func
	sites := map[*ir.Func][]ir.Call{}
	for _, v := range st.Values {
		for _, c := range ir.Calls(v, nil) {
			if _, seen := sites[c.Func]; !seen {
				producers = append(producers, c.Func)
			}
			sites[c.Func] = append(sites[c.Func], c)
		}
	}

	for _, pf := range producers {
		p := funcToNode[pf]
		internalAssert(p != nil, "call to a function outside the pipeline: %s", pf.Name)
		e := &Edge{Producer: p, Consumer: s, Calls: len(sites[pf]), AllBoundsAffine: true}

		for d := 0; d < p.Dimensions; d++ {
			iv := ir.Interval{}
			for i, c := range sites[pf] {
				b := ir.Bounds(c.Args[d], scope)
				if i == 0 {
					iv = b
				} else {
					iv = ir.Interval{
						Min: ir.Simplify(ir.Min(iv.Min, b.Min)),
						Max: ir.Simplify(ir.Max(iv.Max, b.Max)),
					}
				}
			}
			minInfo := makeBoundInfo(iv.Min, s)
			maxInfo := makeBoundInfo(iv.Max, s)
			if !minInfo.Affine || !maxInfo.Affine {
				e.AllBoundsAffine = false
			}
			e.Bounds = append(e.Bounds, [2]BoundInfo{minInfo, maxInfo})
		}

		for _, c := range sites[pf] {
			j := NewLoadJacobian(p.Dimensions, len(s.Loop), 1)
			for d, arg := range c.Args {
				for k, l := range s.Loop {
					num, den := ir.Derivative(arg, l.Var)
					j.Set(d, k, Rational(num, den))
				}
			}
			e.AddLoadJacobian(j)
		}

		dag.Edges = append(dag.Edges, e)
		s.IncomingEdges = append(s.IncomingEdges, e)
		p.OutgoingEdges = append(p.OutgoingEdges, e)
	}
}

// makeBoundInfo runs the affine analysis on one bound expression. The
// decomposition is probed numerically: a bound is affine when it
// mentions at most one symbolic loop variable and responds linearly to
// it.
func makeBoundInfo(e ir.Expr, s *Stage) BoundInfo {
	info := BoundInfo{Expr: e}

	free := map[string]bool{}
	ir.FreeVars(e, free)

	switch len(free) {
	case 0:
		v, ok := ir.Eval(e, nil)
		if ok {
			info.Affine = true
			info.Constant = v
		}
	case 1:
		var name string
		for k := range free {
			name = k
		}
		dim, usesMax, ok := parseLoopVar(name, s)
		if !ok {
			return info
		}
		probe := func(x int64) (int64, bool) {
			return ir.Eval(e, map[string]int64{name: x})
		}
		e0, ok0 := probe(0)
		e1, ok1 := probe(1)
		e2, ok2 := probe(2)
		e101, ok101 := probe(101)
		if !ok0 || !ok1 || !ok2 || !ok101 {
			return info
		}
		c := e1 - e0
		if e2-e1 != c || e101 != e0+101*c {
			return info
		}
		info.Affine = true
		info.Coeff = c
		info.Constant = e0
		info.ConsumerDim = dim
		info.UsesMax = usesMax
	}
	return info
}

func parseLoopVar(name string, s *Stage) (dim int, usesMax, ok bool) {
	for j := range s.Loop {
		switch name {
		case loopMinVar(s, j):
			return j, false, true
		case loopMaxVar(s, j):
			return j, true, true
		}
	}
	return 0, false, false
}

// featurize walks every stage's expressions, fills in the pipeline
// feature records, and derives the per-node call-pattern flags.
func (dag *FunctionDAG) featurize() {
	for _, n := range dag.Nodes {
		pointwise := !n.IsInput
		boundary := !n.IsInput
		anyCalls := false

		for _, s := range n.Stages {
			st := n.Func.Stages[s.Index]
			tc := n.Func.Type
			for _, v := range st.Values {
				s.Features.countOps(v, n.Func, tc)
			}
			s.Features.countAccess(AccessStore, tc, s.StoreJacobian)

			for _, e := range s.IncomingEdges {
				kind := AccessLoadFunc
				if e.Producer == n {
					kind = AccessLoadSelf
				} else if e.Producer.IsInput {
					kind = AccessLoadImage
				}
				for _, j := range e.LoadJacobians {
					s.Features.countAccess(kind, e.Producer.Func.Type, j)
				}
			}

			// Call-pattern flags are judged on the raw call sites.
			for _, v := range st.Values {
				for _, c := range ir.Calls(v, nil) {
					anyCalls = true
					pw, cl := callPattern(c, n.Func)
					pointwise = pointwise && pw
					boundary = boundary && cl
				}
			}
		}

		n.IsPointwise = pointwise && anyCalls
		n.IsBoundaryCondition = boundary && !pointwise && anyCalls

		// A wrapper is a single pointwise call and nothing else.
		n.IsWrapper = !n.IsInput && len(n.Stages) == 1 &&
			isBareCall(n.Func.Stages[0].Values) && n.IsPointwise
	}
}

// callPattern reports whether a call site is pointwise (args are
// exactly the consumer's pure variables in order) and whether it is
// pointwise up to clamping on all indices.
func callPattern(c ir.Call, consumer *ir.Func) (pointwise, clampedPointwise bool) {
	if len(c.Args) == 0 {
		return true, true
	}
	pointwise = len(c.Args) <= len(consumer.Dims)
	clampedPointwise = pointwise
	for i, a := range c.Args {
		if i >= len(consumer.Dims) {
			return false, false
		}
		want := consumer.Dims[i]
		switch t := a.(type) {
		case ir.Var:
			if t.Name != want {
				pointwise, clampedPointwise = false, false
			}
		case ir.Clamp:
			pointwise = false
			if v, ok := t.X.(ir.Var); !ok || v.Name != want {
				clampedPointwise = false
			}
		default:
			pointwise, clampedPointwise = false, false
		}
	}
	return pointwise, clampedPointwise
}

func isBareCall(values []ir.Expr) bool {
	if len(values) != 1 {
		return false
	}
	_, ok := values[0].(ir.Call)
	return ok
}

// RequiredToComputed expands a region required into a region computed,
// using the fast paths when the analysis found them.
func (n *Node) RequiredToComputed(required, computed []Span) {
	internalAssert(len(required) == n.Dimensions && len(computed) == n.Dimensions,
		"region size mismatch on %s", n.Func.Name)
	for d := 0; d < n.Dimensions; d++ {
		info := &n.RegionComputed[d]
		switch {
		case info.EqualsRequired:
			computed[d] = required[d]
		case info.EqualsUnionOfRequiredWithConstants:
			c := required[d]
			c.UnionWith(NewSpan(info.CMin, info.CMax, true))
			computed[d] = c
		default:
			env := n.requiredEnv(required)
			lo, okLo := ir.Eval(info.In.Min, env)
			hi, okHi := ir.Eval(info.In.Max, env)
			internalAssert(okLo && okHi, "cannot evaluate region computed of %s dim %d", n.Func.Name, d)
			computed[d] = NewSpan(lo, hi, false)
		}
	}
}

func (n *Node) requiredEnv(required []Span) map[string]int64 {
	env := make(map[string]int64, 2*n.Dimensions)
	for d := 0; d < n.Dimensions; d++ {
		env[requiredMinVar(n.Func, d)] = required[d].Min()
		env[requiredMaxVar(n.Func, d)] = required[d].Max()
	}
	return env
}

// LoopNestForRegion computes the loop bounds of a stage given the
// node's region computed.
func (n *Node) LoopNestForRegion(stageIdx int, computed, loop []Span) {
	internalAssert(stageIdx >= 0 && stageIdx < len(n.Stages), "bad stage index %d on %s", stageIdx, n.Func.Name)
	s := n.Stages[stageIdx]
	internalAssert(len(loop) == len(s.Loop), "loop size mismatch on %s", s.Name)
	var env map[string]int64
	for j := range s.Loop {
		l := &s.Loop[j]
		switch {
		case l.EqualsRegionComputed:
			loop[j] = computed[l.RegionComputedDim]
		case l.BoundsAreConstant:
			loop[j] = NewSpan(l.CMin, l.CMax, true)
		default:
			if env == nil {
				env = make(map[string]int64, 2*n.Dimensions)
				for d := 0; d < n.Dimensions; d++ {
					env[computedMinVar(n.Func, d)] = computed[d].Min()
					env[computedMaxVar(n.Func, d)] = computed[d].Max()
				}
			}
			lo, okLo := ir.Eval(l.Min, env)
			hi, okHi := ir.Eval(l.Max, env)
			internalAssert(okLo && okHi, "cannot evaluate loop %d of %s", j, s.Name)
			loop[j] = NewSpan(lo, hi, false)
		}
	}
}

// ExpandFootprint widens a region required of the producer to include
// every point the consumer's loop nest touches.
func (e *Edge) ExpandFootprint(consumerLoop, producerRequired []Span) {
	internalAssert(len(producerRequired) == e.Producer.Dimensions,
		"footprint size mismatch on edge %s -> %s", e.Producer.Func.Name, e.Consumer.Name)
	var env map[string]int64
	evalSide := func(info *BoundInfo) int64 {
		if info.Affine {
			v := info.Constant
			if info.Coeff != 0 {
				span := consumerLoop[info.ConsumerDim]
				if info.UsesMax {
					v += info.Coeff * span.Max()
				} else {
					v += info.Coeff * span.Min()
				}
			}
			return v
		}
		if env == nil {
			env = make(map[string]int64, 2*len(consumerLoop))
			for j, span := range consumerLoop {
				env[loopMinVar(e.Consumer, j)] = span.Min()
				env[loopMaxVar(e.Consumer, j)] = span.Max()
			}
		}
		v, ok := ir.Eval(info.Expr, env)
		internalAssert(ok, "cannot evaluate footprint bound on edge %s -> %s",
			e.Producer.Func.Name, e.Consumer.Name)
		return v
	}
	for d := 0; d < e.Producer.Dimensions; d++ {
		lo := evalSide(&e.Bounds[d][0])
		hi := evalSide(&e.Bounds[d][1])
		cExt := e.Bounds[d][0].Affine && e.Bounds[d][1].Affine
		if cExt {
			for _, side := range e.Bounds[d] {
				if side.Coeff != 0 && !consumerLoop[side.ConsumerDim].ConstantExtent() {
					cExt = false
				}
			}
		}
		producerRequired[d].UnionWith(NewSpan(lo, hi, cExt))
	}
}

// NumStages returns the total stage count of the pipeline.
func (dag *FunctionDAG) NumStages() int {
	total := 0
	for _, n := range dag.Nodes {
		total += len(n.Stages)
	}
	return total
}

// Dump writes a human-readable description of the DAG.
func (dag *FunctionDAG) Dump(w io.Writer) {
	for _, n := range dag.Nodes {
		fmt.Fprintf(w, "Node: %s (id %d)\n", n.Func.Name, n.ID)
		fmt.Fprintf(w, "  Symbolic region required: ")
		for _, iv := range n.RegionRequired {
			fmt.Fprintf(w, "[%s, %s] ", iv.Min, iv.Max)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Region computed: ")
		for _, rc := range n.RegionComputed {
			fmt.Fprintf(w, "[%s, %s] ", rc.In.Min, rc.In.Max)
		}
		fmt.Fprintln(w)
		for _, s := range n.Stages {
			fmt.Fprintf(w, "  Stage %d (%s):\n", s.Index, s.Name)
			for _, l := range s.Loop {
				fmt.Fprintf(w, "    %s %s [%s, %s]\n", l.Var, loopKind(l), l.Min, l.Max)
			}
		}
		if n.IsInput {
			fmt.Fprintln(w, "  Input")
		}
		if n.IsOutput {
			fmt.Fprintln(w, "  Output")
		}
		if n.IsPointwise {
			fmt.Fprintln(w, "  Pointwise")
		}
		if n.IsBoundaryCondition {
			fmt.Fprintln(w, "  Boundary condition")
		}
	}
	for _, e := range dag.Edges {
		fmt.Fprintf(w, "Edge: %s -> %s (calls: %d, affine: %v)\n",
			e.Producer.Func.Name, e.Consumer.Name, e.Calls, e.AllBoundsAffine)
		for d, b := range e.Bounds {
			fmt.Fprintf(w, "  dim %d: [%s, %s]\n", d, b[0].Expr, b[1].Expr)
		}
		for _, j := range e.LoadJacobians {
			fmt.Fprintf(w, "  jacobian %dx%d count %d\n",
				j.ProducerStorageDims(), j.ConsumerLoopDims(), j.Count())
		}
	}
}

func loopKind(l Loop) string {
	if l.RVar {
		return "rvar"
	}
	return "pure"
}
