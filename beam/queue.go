package beam

import "container/heap"

// StateQueue is a priority queue of states, cheapest first. Ties are
// broken by insertion order so a fixed seed gives an identical search.
type StateQueue struct {
	h stateHeap
}

type stateEntry struct {
	state *State
	seq   uint64
}

type stateHeap struct {
	entries []stateEntry
	nextSeq uint64
}

func (h stateHeap) Len() int { return len(h.entries) }

func (h stateHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.state.Cost != b.state.Cost {
		return a.state.Cost < b.state.Cost
	}
	return a.seq < b.seq
}

func (h stateHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *stateHeap) Push(x any) {
	h.entries = append(h.entries, x.(stateEntry))
}

func (h *stateHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

// Emplace adds a state to the queue.
func (q *StateQueue) Emplace(s *State) {
	e := stateEntry{state: s, seq: q.h.nextSeq}
	q.h.nextSeq++
	heap.Push(&q.h, e)
}

// Pop removes and returns the cheapest state.
func (q *StateQueue) Pop() *State {
	return heap.Pop(&q.h).(stateEntry).state
}

// Top returns the cheapest state without removing it.
func (q *StateQueue) Top() *State {
	return q.h.entries[0].state
}

// Size returns the number of queued states.
func (q *StateQueue) Size() int {
	return len(q.h.entries)
}

// Empty reports whether the queue has no states.
func (q *StateQueue) Empty() bool {
	return len(q.h.entries) == 0
}

// Swap exchanges the contents of two queues.
func (q *StateQueue) Swap(other *StateQueue) {
	q.h, other.h = other.h, q.h
}

// Resort re-establishes the heap order after state costs have been
// rewritten by a batch cost-model evaluation.
func (q *StateQueue) Resort() {
	heap.Init(&q.h)
}

// Clear drops every state.
func (q *StateQueue) Clear() {
	q.h.entries = q.h.entries[:0]
}

// At returns the i-th state in heap storage order. The order is only
// meaningful for iteration, not ranking.
func (q *StateQueue) At(i int) *State {
	return q.h.entries[i].state
}
