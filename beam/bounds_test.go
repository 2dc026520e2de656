package beam

import (
	"testing"

	autosched "github.com/pipelinekit/autosched"
	"github.com/pipelinekit/autosched/ir"
)

func TestComputeBoundsCoversEstimates(t *testing.T) {
	dag := testDAG(t, ir.DemoProducerConsumer(64, 32))
	bm := ComputeBounds(dag)
	defer bm.Release()

	for _, n := range dag.Nodes {
		b := bm.Bounds(n)
		if b == nil {
			t.Fatalf("no bounds for %s", n.Func.Name)
		}
		if n.IsOutput {
			for d := 0; d < n.Dimensions; d++ {
				if *b.RegionRequired(d) != n.EstimatedRegionRequired[d] {
					t.Errorf("%s dim %d required %v, want estimate %v",
						n.Func.Name, d, *b.RegionRequired(d), n.EstimatedRegionRequired[d])
				}
			}
		}
	}

	// The blur_x stencil pulls two extra columns of the input.
	var input *autosched.Node
	for _, n := range dag.Nodes {
		if n.Func.Name == "input" {
			input = n
		}
	}
	req := bm.Bounds(input).RegionRequired(0)
	if req.Min() != 0 || req.Max() != 65 {
		t.Errorf("input required dim 0 = [%d, %d], want [0, 65]", req.Min(), req.Max())
	}
}

func TestComputeBoundsReleasesPool(t *testing.T) {
	dag := testDAG(t, ir.DemoDiamond(16, 16))
	bm := ComputeBounds(dag)
	bm.Release()
	for _, n := range dag.Nodes {
		if n.BoundsMemoryLayout.NumLive() != 0 {
			t.Errorf("%s layout has %d live bounds after release",
				n.Func.Name, n.BoundsMemoryLayout.NumLive())
		}
	}
}

func TestPackPipelineFeaturesShape(t *testing.T) {
	dag := testDAG(t, ir.DemoScan(16, 16))
	tensor := PackPipelineFeatures(dag)

	nonInputStages := 0
	for _, n := range dag.Nodes {
		if !n.IsInput {
			nonInputStages += len(n.Stages)
		}
	}
	if tensor.Stages != nonInputStages {
		t.Errorf("tensor stages = %d, want %d", tensor.Stages, nonInputStages)
	}
	if tensor.W != autosched.Head1W || tensor.H != autosched.Head1H {
		t.Errorf("tensor is %dx%d, want %dx%d", tensor.W, tensor.H, autosched.Head1W, autosched.Head1H)
	}
	if len(tensor.Data) != tensor.W*tensor.H*tensor.Stages {
		t.Errorf("tensor data length %d inconsistent with shape", len(tensor.Data))
	}
}
