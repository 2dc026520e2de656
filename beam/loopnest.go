package beam

import (
	autosched "github.com/pipelinekit/autosched"
)

// ComputeKind is the placement decision recorded for a node.
type ComputeKind int

const (
	computeUndecided ComputeKind = iota
	computeInlined
	computeRoot
	computeAt
)

// LoopNest is one node in the tree representation of a partial
// schedule. The root level has a nil Node; its children are the funcs
// realized at the root, each of which may carry its own tiling and
// nested realizations. LoopNests are treated as immutable once they
// are owned by a State; mutation goes through Clone.
type LoopNest struct {
	// Node and StageIdx identify what this level computes. Nil Node
	// means the root.
	Node     *autosched.Node
	StageIdx int

	// Size is the outer tile extent per loop, innermost first. Empty
	// means the loop is untiled.
	Size []int64

	// Children are realizations nested inside this loop level.
	Children []*LoopNest

	// Inlined maps node id to the number of call sites inlined into
	// this loop body. Only populated on the root.
	Inlined map[int]int64

	// tiled records, on the root, which nodes have had their tiling
	// decision made.
	tiled map[int]bool
}

// NewRootLoopNest returns an empty schedule.
func NewRootLoopNest() *LoopNest {
	return &LoopNest{
		Inlined: map[int]int64{},
		tiled:   map[int]bool{},
	}
}

// Clone deep-copies the tree. States never share mutable nests.
func (l *LoopNest) Clone() *LoopNest {
	c := &LoopNest{
		Node:     l.Node,
		StageIdx: l.StageIdx,
	}
	if l.Size != nil {
		c.Size = append([]int64(nil), l.Size...)
	}
	for _, ch := range l.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	if l.Inlined != nil {
		c.Inlined = make(map[int]int64, len(l.Inlined))
		for k, v := range l.Inlined {
			c.Inlined[k] = v
		}
	}
	if l.tiled != nil {
		c.tiled = make(map[int]bool, len(l.tiled))
		for k, v := range l.tiled {
			c.tiled[k] = v
		}
	}
	return c
}

// CloneWithInlinedCleared deep-copies the tree and drops the inlining
// records, used when freezing a subtree as compute-root.
func (l *LoopNest) CloneWithInlinedCleared() *LoopNest {
	c := l.Clone()
	c.clearInlined()
	return c
}

func (l *LoopNest) clearInlined() {
	l.Inlined = nil
	for _, ch := range l.Children {
		ch.clearInlined()
	}
}

// ComputeDecision reports the placement recorded for a node.
func (l *LoopNest) ComputeDecision(nodeID int) ComputeKind {
	if l.Inlined != nil {
		if _, ok := l.Inlined[nodeID]; ok {
			return computeInlined
		}
	}
	for _, ch := range l.Children {
		if ch.Node != nil && ch.Node.ID == nodeID {
			return computeRoot
		}
		if ch.findNested(nodeID) {
			return computeAt
		}
	}
	return computeUndecided
}

func (l *LoopNest) findNested(nodeID int) bool {
	for _, ch := range l.Children {
		if ch.Node != nil && ch.Node.ID == nodeID {
			return true
		}
		if ch.findNested(nodeID) {
			return true
		}
	}
	return false
}

// TilingDecided reports whether a node's tiling decision was made.
func (l *LoopNest) TilingDecided(nodeID int) bool {
	return l.tiled[nodeID]
}

// findChildFor returns the subtree realizing the given node, if any.
func (l *LoopNest) findChildFor(nodeID int) *LoopNest {
	for _, ch := range l.Children {
		if ch.Node != nil && ch.Node.ID == nodeID {
			return ch
		}
		if found := ch.findChildFor(nodeID); found != nil {
			return found
		}
	}
	return nil
}

// StructuralHash folds the tree shape down to the given depth into a
// hash. Negative depth hashes nothing but the inlining set, so
// coarser passes see more states as equivalent.
func (l *LoopNest) StructuralHash(depth int) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	mix := func(v uint64) {
		h ^= v
		h *= prime64
	}
	if l.Inlined != nil {
		// Order-independent fold of the inlined set.
		var acc uint64
		for id := range l.Inlined {
			acc += uint64(id)*prime64 + 1
		}
		mix(acc)
	}
	var walk func(n *LoopNest, d int)
	walk = func(n *LoopNest, d int) {
		if n.Node != nil {
			mix(uint64(n.Node.ID) + 1)
			mix(uint64(n.StageIdx))
		}
		if d >= 1 {
			mix(uint64(len(n.Size)))
			for _, sz := range n.Size {
				mix(uint64(sz))
			}
		}
		if d < 0 {
			return
		}
		mix(uint64(len(n.Children)))
		for _, ch := range n.Children {
			walk(ch, d-1)
		}
	}
	if depth >= 0 {
		walk(l, depth)
	}
	return h
}
