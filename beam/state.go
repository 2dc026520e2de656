package beam

import (
	"fmt"

	autosched "github.com/pipelinekit/autosched"
)

// State is a node in the beam search: a partial schedule, its parent,
// and the cost the model assigned it. States are immutable once
// enqueued; children are built from clones of the root loop nest.
type State struct {
	Root   *LoopNest
	Parent *State

	Cost         float64
	CostPerStage []float64

	// NumDecisionsMade counts scheduling decisions. Two per node:
	// where to compute it, and how to tile it.
	NumDecisionsMade int

	// Penalized marks that the structural-hash penalty was already
	// applied this expansion step.
	Penalized bool
}

// NewInitialState returns the root of the search: an empty schedule
// with no decisions made.
func NewInitialState() *State {
	return &State{Root: NewRootLoopNest()}
}

// StructuralHash hashes the schedule's tree shape at the given
// granularity.
func (s *State) StructuralHash(depth int) uint64 {
	return s.Root.StructuralHash(depth)
}

// IsTerminal reports whether every decision has been made.
func (s *State) IsTerminal(dag *autosched.FunctionDAG) bool {
	return s.NumDecisionsMade == 2*len(dag.Nodes)
}

// child clones s into a successor with one more decision made.
func (s *State) child() *State {
	return &State{
		Root:             s.Root.Clone(),
		Parent:           s,
		Cost:             s.Cost,
		NumDecisionsMade: s.NumDecisionsMade + 1,
	}
}

// FreezeMaps constrains child generation after a freezing pre-pass.
type FreezeMaps struct {
	// InlinedNodes forces the node to be inlined.
	InlinedNodes map[int]bool

	// ComputeRootNodes pins the node at the root with the given
	// frozen subtrees.
	ComputeRootNodes map[int][]*LoopNest
}

// Empty reports whether no freezing is in effect.
func (f *FreezeMaps) Empty() bool {
	return f == nil || (len(f.InlinedNodes) == 0 && len(f.ComputeRootNodes) == 0)
}

// GenerateChildren expands s by making the next decision for the next
// node, passing each successor to accept. Decisions alternate: even
// decisions place the node's computation, odd decisions pick its
// tiling.
func (s *State) GenerateChildren(dag *autosched.FunctionDAG, opts *SearchOptions,
	frozen *FreezeMaps, accept func(*State)) {

	internalAssertf(s.NumDecisionsMade < 2*len(dag.Nodes), "expanding a terminal state")

	node := dag.Nodes[s.NumDecisionsMade/2]
	placing := s.NumDecisionsMade%2 == 0

	// Input buffers are represented in the DAG but not scheduled;
	// their decisions pass through.
	if node.IsInput {
		accept(s.child())
		return
	}

	if placing {
		s.generatePlacements(dag, node, opts, frozen, accept)
		return
	}
	s.generateTilings(node, opts, frozen, accept)
}

func (s *State) generatePlacements(dag *autosched.FunctionDAG, node *autosched.Node,
	opts *SearchOptions, frozen *FreezeMaps, accept func(*State)) {

	// Frozen nodes have their placement dictated by the pre-pass.
	if frozen != nil {
		if frozen.InlinedNodes[node.ID] {
			accept(s.inlineChild(node))
			return
		}
		if subtrees, ok := frozen.ComputeRootNodes[node.ID]; ok {
			c := s.child()
			for _, t := range subtrees {
				c.Root.Children = append(c.Root.Children, t.Clone())
			}
			accept(c)
			return
		}
	}

	// Option: inline into every consumer. Legal for single-stage
	// funcs that are not outputs and have at least one consumer.
	if !node.IsOutput && len(node.Stages) == 1 && len(node.OutgoingEdges) > 0 {
		accept(s.inlineChild(node))
	}

	// Option: realize at the root.
	c := s.child()
	c.Root.Children = append(c.Root.Children, &LoopNest{Node: node, StageIdx: 0})
	accept(c)

	// Options: compute at a consumer's realization. Restricting the
	// search to root placements is the no-subtiling schedule family.
	if opts.NoSubtiling {
		return
	}
	for _, e := range node.OutgoingEdges {
		consumer := e.Consumer.Node
		host := s.Root.findChildFor(consumer.ID)
		if host == nil {
			continue
		}
		cc := s.child()
		hostCopy := cc.Root.findChildFor(consumer.ID)
		hostCopy.Children = append(hostCopy.Children, &LoopNest{Node: node, StageIdx: 0})
		accept(cc)
	}
}

func (s *State) inlineChild(node *autosched.Node) *State {
	c := s.child()
	calls := int64(0)
	for _, e := range node.OutgoingEdges {
		calls += int64(e.Calls)
	}
	c.Root.Inlined[node.ID] = calls
	return c
}

func (s *State) generateTilings(node *autosched.Node, opts *SearchOptions,
	frozen *FreezeMaps, accept func(*State)) {

	// Inlined nodes have no loops of their own to tile, and frozen
	// compute-root subtrees keep the structure the pre-pass chose.
	frozenHere := frozen != nil &&
		(frozen.InlinedNodes[node.ID] || len(frozen.ComputeRootNodes[node.ID]) > 0)
	if frozenHere || s.Root.ComputeDecision(node.ID) == computeInlined {
		c := s.child()
		c.Root.tiled[node.ID] = true
		accept(c)
		return
	}

	target := s.Root.findChildFor(node.ID)
	internalAssertf(target != nil, "tiling decision for an unplaced node %s", node.Func.Name)

	// Option: leave the default loop nest alone.
	c := s.child()
	c.Root.tiled[node.ID] = true
	accept(c)

	if opts.NoSubtiling {
		return
	}

	// Options: tile the innermost pure loop by a small family of sizes
	// anchored at the natural vector width; every other loop gets a
	// tile size of 1.
	for _, f := range []int64{int64(node.VectorSize), int64(node.VectorSize) * 4} {
		if f <= 1 {
			continue
		}
		cc := s.child()
		t := cc.Root.findChildFor(node.ID)
		t.Size = tileSizes(node, f)
		cc.Root.tiled[node.ID] = true
		accept(cc)
	}
}

func tileSizes(node *autosched.Node, f int64) []int64 {
	sizes := make([]int64, node.Dimensions)
	for d := range sizes {
		if d == 0 {
			sizes[d] = f
		} else {
			sizes[d] = 1
		}
	}
	return sizes
}

func internalAssertf(cond bool, format string, args ...any) {
	if !cond {
		panic(&autosched.InternalError{Msg: fmt.Sprintf(format, args...)})
	}
}
