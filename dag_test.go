package autosched

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pipelinekit/autosched/ir"
)

func buildDAG(t *testing.T, outputs []*ir.Func) *FunctionDAG {
	t.Helper()
	return NewFunctionDAG(outputs, DefaultMachineParams(), DefaultTarget())
}

func TestDAGIDsDense(t *testing.T) {
	dag := buildDAG(t, ir.DemoDiamond(32, 32))

	seenNodes := map[int]bool{}
	for i, n := range dag.Nodes {
		if n.ID != i {
			t.Errorf("node %s has id %d at position %d", n.Func.Name, n.ID, i)
		}
		if seenNodes[n.ID] {
			t.Errorf("duplicate node id %d", n.ID)
		}
		seenNodes[n.ID] = true
		if n.MaxID != len(dag.Nodes) {
			t.Errorf("node max id = %d, want %d", n.MaxID, len(dag.Nodes))
		}
	}

	seenStages := map[int]bool{}
	numStages := dag.NumStages()
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			if s.ID < 0 || s.ID >= numStages {
				t.Errorf("stage %s id %d out of range [0, %d)", s.Name, s.ID, numStages)
			}
			if seenStages[s.ID] {
				t.Errorf("duplicate stage id %d", s.ID)
			}
			seenStages[s.ID] = true
			if s.MaxID != numStages {
				t.Errorf("stage max id = %d, want %d", s.MaxID, numStages)
			}
		}
	}
	for i := 0; i < numStages; i++ {
		if dag.StageIDToNode[i] == nil {
			t.Errorf("stage id %d not mapped to a node", i)
		}
	}
}

func TestDAGReverseRealizationOrder(t *testing.T) {
	for _, outputs := range [][]*ir.Func{
		ir.DemoPointwise(16, 16),
		ir.DemoProducerConsumer(16, 16),
		ir.DemoDiamond(16, 16),
		ir.DemoScan(16, 16),
	} {
		dag := buildDAG(t, outputs)
		for _, e := range dag.Edges {
			if e.Producer == e.Consumer.Node {
				continue // self edge from an update stage
			}
			if e.Consumer.Node.ID >= e.Producer.ID {
				t.Errorf("edge %s -> %s violates reverse realization order (%d >= %d)",
					e.Producer.Func.Name, e.Consumer.Name, e.Consumer.Node.ID, e.Producer.ID)
			}
		}
	}
}

func TestDAGEdgeLinkage(t *testing.T) {
	dag := buildDAG(t, ir.DemoDiamond(16, 16))
	for _, e := range dag.Edges {
		if e.Producer == nil || e.Consumer == nil || e.Consumer.Node == nil {
			t.Fatalf("edge with nil endpoint")
		}
		found := false
		for _, in := range e.Consumer.IncomingEdges {
			if in == e {
				found = true
			}
		}
		if !found {
			t.Errorf("edge missing from consumer %s incoming", e.Consumer.Name)
		}
		found = false
		for _, out := range e.Producer.OutgoingEdges {
			if out == e {
				found = true
			}
		}
		if !found {
			t.Errorf("edge missing from producer %s outgoing", e.Producer.Func.Name)
		}
	}
}

func TestDAGDependenciesTransitivelyClosed(t *testing.T) {
	for _, outputs := range [][]*ir.Func{
		ir.DemoProducerConsumer(16, 16),
		ir.DemoDiamond(16, 16),
		ir.DemoFourStage(16, 16),
	} {
		dag := buildDAG(t, outputs)
		for _, e := range dag.Edges {
			c := e.Consumer
			if !c.DownstreamOf(e.Producer) {
				t.Errorf("%s not downstream of its producer %s", c.Name, e.Producer.Func.Name)
			}
			for _, ps := range e.Producer.Stages {
				for id, dep := range ps.Dependencies {
					if dep && !c.Dependencies[id] {
						t.Errorf("%s missing transitive dependency on node %d", c.Name, id)
					}
				}
			}
		}
	}
}

func TestDAGNodeFlags(t *testing.T) {
	dag := buildDAG(t, ir.DemoDiamond(16, 16))
	byName := map[string]*Node{}
	for _, n := range dag.Nodes {
		byName[n.Func.Name] = n
	}

	if !byName["input"].IsInput {
		t.Errorf("input should be flagged as input")
	}
	if !byName["sink"].IsOutput {
		t.Errorf("sink should be flagged as output")
	}
	for _, name := range []string{"base", "left", "right", "sink"} {
		if !byName[name].IsPointwise {
			t.Errorf("%s should be pointwise", name)
		}
	}

	dag = buildDAG(t, ir.DemoBoundary(16, 16))
	byName = map[string]*Node{}
	for _, n := range dag.Nodes {
		byName[n.Func.Name] = n
	}
	if !byName["edge"].IsBoundaryCondition {
		t.Errorf("edge should be a boundary condition")
	}
	if byName["edge"].IsPointwise {
		t.Errorf("a clamped access is not pointwise")
	}
}

func TestRequiredToComputedFastPath(t *testing.T) {
	dag := buildDAG(t, ir.DemoScan(32, 8))
	var scan *Node
	for _, n := range dag.Nodes {
		if n.Func.Name == "scan" {
			scan = n
		}
	}
	if scan == nil {
		t.Fatal("scan node missing")
	}
	if !scan.RegionComputedAllCommonCases {
		t.Fatalf("scan's region computed should hit the common cases")
	}
	// Dim 0 is extended by the reduction store over [1, 31]; dim 1 is
	// exactly what is required.
	if scan.RegionComputed[0].EqualsRequired {
		t.Errorf("scan dim 0 should not equal the region required")
	}
	if !scan.RegionComputed[0].EqualsUnionOfRequiredWithConstants {
		t.Errorf("scan dim 0 should be a union with constants")
	}
	if !scan.RegionComputed[1].EqualsRequired {
		t.Errorf("scan dim 1 should equal the region required")
	}

	required := []Span{NewSpan(5, 10, true), NewSpan(2, 3, true)}
	computed := make([]Span, 2)
	scan.RequiredToComputed(required, computed)

	want0 := required[0]
	want0.UnionWith(NewSpan(scan.RegionComputed[0].CMin, scan.RegionComputed[0].CMax, true))
	if computed[0] != want0 {
		t.Errorf("computed dim 0 = %v, want union with constants %v", computed[0], want0)
	}
	if computed[1] != required[1] {
		t.Errorf("computed dim 1 = %v, want %v", computed[1], required[1])
	}
}

func TestExpandFootprintMonotone(t *testing.T) {
	dag := buildDAG(t, ir.DemoProducerConsumer(64, 64))

	// Find the blur_x -> blur_y edge.
	var e *Edge
	for _, edge := range dag.Edges {
		if edge.Producer.Func.Name == "blur_x" {
			e = edge
		}
	}
	if e == nil {
		t.Fatal("blur_x edge missing")
	}

	narrow := []Span{NewSpan(0, 7, true), NewSpan(0, 7, true)}
	wide := []Span{NewSpan(-2, 15, true), NewSpan(0, 31, true)}

	reqNarrow := []Span{EmptySpan(), EmptySpan()}
	reqWide := []Span{EmptySpan(), EmptySpan()}
	e.ExpandFootprint(narrow, reqNarrow)
	e.ExpandFootprint(wide, reqWide)

	for d := range reqNarrow {
		if reqWide[d].Min() > reqNarrow[d].Min() || reqWide[d].Max() < reqNarrow[d].Max() {
			t.Errorf("dim %d: widening the loop shrank the footprint: %v vs %v",
				d, reqNarrow[d], reqWide[d])
		}
	}
}

func TestExpandFootprintStencil(t *testing.T) {
	dag := buildDAG(t, ir.DemoProducerConsumer(64, 64))

	// input is read at x, x+1, x+2 by blur_x.
	var e *Edge
	for _, edge := range dag.Edges {
		if edge.Producer.Func.Name == "input" && edge.Consumer.Name == "blur_x" {
			e = edge
		}
	}
	if e == nil {
		t.Fatal("input -> blur_x edge missing")
	}
	if e.Calls != 3 {
		t.Errorf("calls = %d, want 3", e.Calls)
	}
	if !e.AllBoundsAffine {
		t.Errorf("stencil bounds should be affine")
	}

	loop := []Span{NewSpan(0, 9, true), NewSpan(0, 4, true)}
	req := []Span{EmptySpan(), EmptySpan()}
	e.ExpandFootprint(loop, req)
	if req[0].Min() != 0 || req[0].Max() != 11 {
		t.Errorf("stencil footprint dim 0 = [%d, %d], want [0, 11]", req[0].Min(), req[0].Max())
	}
	if req[1].Min() != 0 || req[1].Max() != 4 {
		t.Errorf("stencil footprint dim 1 = [%d, %d], want [0, 4]", req[1].Min(), req[1].Max())
	}
}

func TestStencilJacobiansMerge(t *testing.T) {
	dag := buildDAG(t, ir.DemoProducerConsumer(64, 64))
	var e *Edge
	for _, edge := range dag.Edges {
		if edge.Producer.Func.Name == "input" && edge.Consumer.Name == "blur_x" {
			e = edge
		}
	}
	// The three taps of the stencil share one Jacobian (identity), so
	// they merge into a single entry with count 3.
	if len(e.LoadJacobians) != 1 {
		t.Fatalf("jacobians = %d, want 1 merged entry", len(e.LoadJacobians))
	}
	if e.LoadJacobians[0].Count() != 3 {
		t.Errorf("merged count = %d, want 3", e.LoadJacobians[0].Count())
	}
	if !e.AllLoadJacobianCoeffsExist() {
		t.Errorf("stencil jacobian coefficients should all exist")
	}
}

func TestPipelineFeaturesShape(t *testing.T) {
	dag := buildDAG(t, ir.DemoProducerConsumer(16, 16))
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			feats := s.Features.Slice()
			if len(feats) != Head1W*Head1H {
				t.Fatalf("stage %s features pack to %d ints, want %d",
					s.Name, len(feats), Head1W*Head1H)
			}
		}
	}

	var blurX *Stage
	for _, n := range dag.Nodes {
		if n.Func.Name == "blur_x" {
			blurX = n.Stages[0]
		}
	}
	f := blurX.Features
	if f.TypesInUse[ir.TypeFloat] != 1 {
		t.Errorf("float should be marked in use")
	}
	if f.OpHistogram[OpTypeAdd][ir.TypeFloat] != 2 {
		t.Errorf("blur_x adds = %d, want 2", f.OpHistogram[OpTypeAdd][ir.TypeFloat])
	}
	if f.OpHistogram[OpTypeDiv][ir.TypeFloat] != 1 {
		t.Errorf("blur_x divs = %d, want 1", f.OpHistogram[OpTypeDiv][ir.TypeFloat])
	}
	if f.OpHistogram[OpTypeImageCall][ir.TypeFloat] != 3 {
		t.Errorf("blur_x image calls = %d, want 3", f.OpHistogram[OpTypeImageCall][ir.TypeFloat])
	}
}

func TestStageNames(t *testing.T) {
	dag := buildDAG(t, ir.DemoScan(16, 16))
	var names []string
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			names = append(names, s.Name)
		}
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "scan.update(0)") {
		t.Errorf("update stage name missing from %q", joined)
	}
	for _, n := range dag.Nodes {
		for _, s := range n.Stages {
			if strings.ContainsAny(s.SanitizedName, ".()") {
				t.Errorf("sanitized name %q still has punctuation", s.SanitizedName)
			}
		}
	}
}

func TestDumpMentionsEveryNode(t *testing.T) {
	dag := buildDAG(t, ir.DemoDiamond(16, 16))
	var b strings.Builder
	dag.Dump(&b)
	out := b.String()
	want := []string{"base", "left", "right", "sink", "input"}
	for _, name := range want {
		if !strings.Contains(out, name) {
			t.Errorf("dump missing node %s", name)
		}
	}
}

func TestWrapperDetection(t *testing.T) {
	in := ir.Input("input", ir.TypeFloat, 16, 16)
	inner := ir.NewFunc("inner", ir.TypeFloat, "x", "y").
		Define(ir.Add(ir.CallOf(in, ir.V("x"), ir.V("y")), ir.C(1)))
	wrap := ir.NewFunc("wrap", ir.TypeFloat, "x", "y").
		Define(ir.CallOf(inner, ir.V("x"), ir.V("y"))).
		Estimate(ir.Estimate{Min: 0, Extent: 16}, ir.Estimate{Min: 0, Extent: 16})

	dag := buildDAG(t, []*ir.Func{wrap})
	for _, n := range dag.Nodes {
		wantWrapper := n.Func.Name == "wrap"
		if n.IsWrapper != wantWrapper {
			t.Errorf("%s wrapper flag = %v, want %v", n.Func.Name, n.IsWrapper, wantWrapper)
		}
	}
}

func TestDAGNodeOrderStable(t *testing.T) {
	a := buildDAG(t, ir.DemoDiamond(16, 16))
	b := buildDAG(t, ir.DemoDiamond(16, 16))
	var an, bn []string
	for _, n := range a.Nodes {
		an = append(an, n.Func.Name)
	}
	for _, n := range b.Nodes {
		bn = append(bn, n.Func.Name)
	}
	if diff := cmp.Diff(an, bn); diff != "" {
		t.Errorf("node order not deterministic (-a +b):\n%s", diff)
	}
	if an[0] != "sink" {
		t.Errorf("first node = %s, want the output (consumers first)", an[0])
	}
}
