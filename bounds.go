package autosched

// BoundContents is a concrete set of bounds for one pipeline node: a
// flat array of Spans partitioned into the region required, the region
// computed, and the loop bounds of each stage. Bounds objects are
// created and destroyed very frequently while exploring scheduling
// options, so each Layout keeps a free-list pool of them. Once
// populated and shared, a BoundContents is treated as immutable;
// mutation means MakeCopy.
type BoundContents struct {
	layout *Layout
	spans  []Span
}

// RegionRequired returns the span of the region required in dimension i.
func (b *BoundContents) RegionRequired(i int) *Span {
	return &b.spans[i]
}

// RegionComputed returns the span of the region computed in dimension i.
func (b *BoundContents) RegionComputed(i int) *Span {
	return &b.spans[i+b.layout.computedOffset]
}

// Loops returns the span of loop j of stage stageIdx.
func (b *BoundContents) Loops(stageIdx, j int) *Span {
	return &b.spans[j+b.layout.loopOffset[stageIdx]]
}

// Layout returns the Layout that produced this BoundContents.
func (b *BoundContents) Layout() *Layout {
	return b.layout
}

// MakeCopy returns a fresh pool entry with the Span array copied
// bitwise. Pool entries are never shared between copies.
func (b *BoundContents) MakeCopy() *BoundContents {
	c := b.layout.Make()
	copy(c.spans, b.spans)
	return c
}

// Layout fixes the memory layout of the BoundContents for one node:
// the total Span count, where the region computed starts, and where
// each stage's loop spans start. We make a lot of bounds objects per
// node during search, so the layout is computed once and each instance
// just uses it. Not thread-safe.
type Layout struct {
	totalSize      int
	computedOffset int
	loopOffset     []int

	// Free pool of BoundContents with this layout, and the bulk
	// span blocks backing every entry ever made.
	pool    []*BoundContents
	blocks  [][]Span
	numLive int
	// Next block grows geometrically to amortize allocation.
	nextBlockEntries int
}

// NewLayout builds a layout for a node with the given number of
// dimensions and the loop sizes of each stage, innermost first.
func NewLayout(dimensions int, stageLoopSizes []int) *Layout {
	l := &Layout{
		computedOffset:   dimensions,
		loopOffset:       make([]int, len(stageLoopSizes)),
		nextBlockEntries: 32,
	}
	total := 2 * dimensions
	for i, n := range stageLoopSizes {
		l.loopOffset[i] = total
		total += n
	}
	l.totalSize = total
	return l
}

// TotalSize returns the number of Spans in each BoundContents.
func (l *Layout) TotalSize() int { return l.totalSize }

// NumLive returns the number of outstanding BoundContents. Destroying
// a Layout with live contents is a caller bug; this is the hook for
// asserting on it.
func (l *Layout) NumLive() int { return l.numLive }

func (l *Layout) allocateSomeMore() {
	n := l.nextBlockEntries
	l.nextBlockEntries *= 2
	block := make([]Span, n*l.totalSize)
	l.blocks = append(l.blocks, block)
	for i := 0; i < n; i++ {
		l.pool = append(l.pool, &BoundContents{
			layout: l,
			spans:  block[i*l.totalSize : (i+1)*l.totalSize : (i+1)*l.totalSize],
		})
	}
}

// Make returns a BoundContents with this layout from the pool. The
// spans hold whatever the previous user left; callers populate every
// field they read.
func (l *Layout) Make() *BoundContents {
	if len(l.pool) == 0 {
		l.allocateSomeMore()
	}
	b := l.pool[len(l.pool)-1]
	l.pool = l.pool[:len(l.pool)-1]
	l.numLive++
	return b
}

// Release returns a BoundContents to the pool. It must have been made
// by this Layout.
func (l *Layout) Release(b *BoundContents) {
	internalAssert(b.layout == l, "bounds released to the wrong layout")
	internalAssert(l.numLive > 0, "bounds release with no live contents")
	l.numLive--
	l.pool = append(l.pool, b)
}
