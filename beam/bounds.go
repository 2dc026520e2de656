package beam

import (
	autosched "github.com/pipelinekit/autosched"
)

// BoundsMap holds the concrete bounds of every node when the pipeline
// is realized at the output estimates: the region required by all
// consumers, the region computed, and each stage's loop extents.
// Entries come from each node's Layout pool and must be released.
type BoundsMap struct {
	dag    *autosched.FunctionDAG
	bounds map[int]*autosched.BoundContents
}

// ComputeBounds walks the DAG consumers-first, expanding footprints
// across every edge, and returns the resulting bounds for each node.
func ComputeBounds(dag *autosched.FunctionDAG) *BoundsMap {
	bm := &BoundsMap{dag: dag, bounds: make(map[int]*autosched.BoundContents, len(dag.Nodes))}

	required := make(map[int][]autosched.Span, len(dag.Nodes))
	for _, n := range dag.Nodes {
		spans := make([]autosched.Span, n.Dimensions)
		for d := range spans {
			spans[d] = autosched.EmptySpan()
		}
		required[n.ID] = spans
	}
	// Outputs are bounded by the user's estimates.
	for _, n := range dag.Nodes {
		if n.IsOutput {
			copy(required[n.ID], n.EstimatedRegionRequired)
		}
	}

	// Nodes are stored consumers first, so a single forward walk has
	// every consumer's loop bounds ready before its producers need
	// them.
	for _, n := range dag.Nodes {
		if n.IsInput && len(n.EstimatedRegionRequired) > 0 {
			// Inputs at least cover their own estimates.
			for d, sp := range n.EstimatedRegionRequired {
				required[n.ID][d].UnionWith(sp)
			}
		}
		b := n.MakeBound()
		for d := 0; d < n.Dimensions; d++ {
			*b.RegionRequired(d) = required[n.ID][d]
		}
		computed := make([]autosched.Span, n.Dimensions)
		n.RequiredToComputed(required[n.ID], computed)
		for d := 0; d < n.Dimensions; d++ {
			*b.RegionComputed(d) = computed[d]
		}
		for si, s := range n.Stages {
			loop := make([]autosched.Span, len(s.Loop))
			n.LoopNestForRegion(si, computed, loop)
			for j := range loop {
				*b.Loops(si, j) = loop[j]
			}
			for _, e := range s.IncomingEdges {
				e.ExpandFootprint(loop, required[e.Producer.ID])
			}
		}
		bm.bounds[n.ID] = b
	}
	return bm
}

// Bounds returns the bounds of a node.
func (bm *BoundsMap) Bounds(n *autosched.Node) *autosched.BoundContents {
	return bm.bounds[n.ID]
}

// Release returns every entry to its node's pool.
func (bm *BoundsMap) Release() {
	for id, b := range bm.bounds {
		bm.dag.Nodes[id].BoundsMemoryLayout.Release(b)
		delete(bm.bounds, id)
	}
}
