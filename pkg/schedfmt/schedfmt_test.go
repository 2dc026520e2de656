package schedfmt

import (
	"strings"
	"testing"

	autosched "github.com/pipelinekit/autosched"
	"github.com/pipelinekit/autosched/beam"
	"github.com/pipelinekit/autosched/ir"
)

func searchBest(t *testing.T, outputs []*ir.Func) (*autosched.FunctionDAG, *beam.State) {
	t.Helper()
	dag := autosched.NewFunctionDAG(outputs, autosched.DefaultMachineParams(), autosched.DefaultTarget())
	opts := beam.DefaultOptions()
	opts.BeamSize = 2
	best, _, err := beam.Search(dag, autosched.DefaultMachineParams(), beam.NewFootprintModel(dag), opts)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	return dag, best
}

func TestFormatMentionsScheduledFuncs(t *testing.T) {
	dag, best := searchBest(t, ir.DemoProducerConsumer(32, 32))
	out, err := Format(dag, best, SchedFmtCfg{})
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if !strings.Contains(out, "blur_y") {
		t.Errorf("output func missing from schedule:\n%s", out)
	}
	if !strings.Contains(out, "compute_root") {
		t.Errorf("no compute_root line in schedule:\n%s", out)
	}
}

func TestFormatWithExtentsAndCosts(t *testing.T) {
	dag, best := searchBest(t, ir.DemoDiamond(32, 32))
	out, err := Format(dag, best, SchedFmtCfg{ShowLoopExtents: true, ShowCosts: true})
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if !strings.Contains(out, "x:32") {
		t.Errorf("loop extents missing:\n%s", out)
	}
	if !strings.Contains(out, "cost:") {
		t.Errorf("per-stage costs missing:\n%s", out)
	}

	// Formatting must return its pool entries.
	for _, n := range dag.Nodes {
		if n.BoundsMemoryLayout.NumLive() != 0 {
			t.Errorf("%s layout has live bounds after formatting", n.Func.Name)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	cfg, err := ValidateConfig(SchedFmtCfg{})
	if err != nil || cfg.Indent != 4 {
		t.Errorf("defaults not applied: %+v, %v", cfg, err)
	}
	if _, err := ValidateConfig(SchedFmtCfg{Indent: -1}); err == nil {
		t.Errorf("negative indent should be rejected")
	}
}
