// Package schedfmt renders a schedule chosen by the autoscheduler as
// human-readable scheduling source. It is a presentation layer only:
// applying the schedule to a compiler pipeline happens elsewhere.
package schedfmt

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	autosched "github.com/pipelinekit/autosched"
	"github.com/pipelinekit/autosched/beam"
)

// SchedFmtCfg controls the rendering.
type SchedFmtCfg struct {
	// Indent is the number of spaces per nesting level. (default: 4)
	Indent int

	// ShowLoopExtents annotates each func with the concrete loop
	// extents at the output estimates.
	ShowLoopExtents bool

	// ShowCosts appends the per-stage model costs.
	ShowCosts bool
}

// ValidateConfig fills in defaults and rejects nonsense.
func ValidateConfig(cfg SchedFmtCfg) (SchedFmtCfg, error) {
	if cfg.Indent == 0 {
		cfg.Indent = 4
	}
	if cfg.Indent < 0 || cfg.Indent > 16 {
		return cfg, fmt.Errorf("indent must be in [1, 16], got %d", cfg.Indent)
	}
	return cfg, nil
}

// Format renders the state's schedule against its DAG.
func Format(dag *autosched.FunctionDAG, s *beam.State, cfg SchedFmtCfg) (string, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("could not format schedule: %w", err)
	}

	var bm *beam.BoundsMap
	if cfg.ShowLoopExtents {
		bm = beam.ComputeBounds(dag)
		defer bm.Release()
	}

	var lines []string
	pad := strings.Repeat(" ", cfg.Indent)

	nameWidth := 0
	for _, n := range dag.Nodes {
		if w := runewidth.StringWidth(n.Func.Name); w > nameWidth {
			nameWidth = w
		}
	}

	describe := func(n *autosched.Node, l *beam.LoopNest, depth int) string {
		var b strings.Builder
		b.WriteString(strings.Repeat(pad, depth))
		b.WriteString(runewidth.FillRight(n.Func.Name, nameWidth))
		if depth == 0 {
			b.WriteString("  .compute_root()")
		} else {
			b.WriteString("  .compute_at(parent)")
		}
		if len(l.Size) > 0 {
			fmt.Fprintf(&b, ".tile(%v)", l.Size)
		}
		if bm != nil {
			bounds := bm.Bounds(n)
			b.WriteString("  //")
			for si := range n.Stages {
				for j := range n.Stages[si].Loop {
					fmt.Fprintf(&b, " %s:%d", n.Stages[si].Loop[j].Var, bounds.Loops(si, j).Extent())
				}
			}
		}
		return b.String()
	}

	var walk func(l *beam.LoopNest, depth int)
	walk = func(l *beam.LoopNest, depth int) {
		if l.Node != nil {
			lines = append(lines, describe(l.Node, l, depth))
		}
		for _, ch := range l.Children {
			d := depth
			if l.Node != nil {
				d++
			}
			walk(ch, d)
		}
	}
	walk(s.Root, 0)

	for _, n := range dag.Nodes {
		if _, ok := s.Root.Inlined[n.ID]; ok {
			lines = append(lines, runewidth.FillRight(n.Func.Name, nameWidth)+"  .inline()")
		}
	}

	if cfg.ShowCosts && len(s.CostPerStage) > 0 {
		lines = append(lines, "")
		for _, n := range dag.Nodes {
			for _, st := range n.Stages {
				if st.ID < len(s.CostPerStage) {
					lines = append(lines, fmt.Sprintf("// %s cost: %g",
						runewidth.FillRight(st.Name, nameWidth), s.CostPerStage[st.ID]))
				}
			}
		}
	}

	return strings.Join(lines, "\n") + "\n", nil
}
