/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: queue.go
Description: Priority queue of scored terms used to rank candidates. Lower scores come
out first and equal scores come out in lexicographic order, so rankings are fully
deterministic. Uses a binary heap data structure for O(log n) operations.
*/

package ranking

import (
	"github.com/kleascm/chainforge/pkg/core"
)

// ScoredTerm is a candidate term with its aggregated distance score
type ScoredTerm struct {
	Term  core.Term
	Score float64
}

// TermQueue implements a min-priority queue of scored terms
// Uses a binary heap for efficient priority-based operations
type TermQueue struct {
	heap []ScoredTerm // Binary heap array
}

// NewTermQueue creates a new queue with room for capacity terms
func NewTermQueue(capacity int) *TermQueue {
	return &TermQueue{
		heap: make([]ScoredTerm, 0, capacity),
	}
}

// Put adds a scored term to the queue
// Maintains heap property for efficient retrieval
func (q *TermQueue) Put(term ScoredTerm) {
	q.heap = append(q.heap, term)
	q.bubbleUp(len(q.heap) - 1)
}

// Get removes and returns the best (lowest score) term
// Returns false if queue is empty
func (q *TermQueue) Get() (ScoredTerm, bool) {
	if len(q.heap) == 0 {
		return ScoredTerm{}, false
	}

	// Get root element (best score)
	root := q.heap[0]
	last := len(q.heap) - 1

	// Move last element to root
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]

	// Bubble down to maintain heap property
	if len(q.heap) > 0 {
		q.bubbleDown(0)
	}

	return root, true
}

// Peek returns the best term without removing it
func (q *TermQueue) Peek() (ScoredTerm, bool) {
	if len(q.heap) == 0 {
		return ScoredTerm{}, false
	}
	return q.heap[0], true
}

// Size returns the current number of terms in the queue
func (q *TermQueue) Size() int {
	return len(q.heap)
}

// IsEmpty returns true if the queue is empty
func (q *TermQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Drain empties the queue and returns its terms best first
func (q *TermQueue) Drain() []core.Term {
	terms := make([]core.Term, 0, len(q.heap))
	for {
		item, ok := q.Get()
		if !ok {
			return terms
		}
		terms = append(terms, item.Term)
	}
}

// less orders by score, then by term
func (q *TermQueue) less(i, j int) bool {
	if q.heap[i].Score != q.heap[j].Score {
		return q.heap[i].Score < q.heap[j].Score
	}
	return q.heap[i].Term < q.heap[j].Term
}

// bubbleUp moves an element up the heap to maintain heap property
// Used after insertion to restore heap order
func (q *TermQueue) bubbleUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2

		// If current element ranks before its parent, swap
		if q.less(index, parent) {
			q.heap[index], q.heap[parent] = q.heap[parent], q.heap[index]
			index = parent
		} else {
			break
		}
	}
}

// bubbleDown moves an element down the heap to maintain heap property
// Used after removal to restore heap order
func (q *TermQueue) bubbleDown(index int) {
	size := len(q.heap)
	for {
		left := 2*index + 1
		right := 2*index + 2
		best := index

		// Find the best among current node and its children
		if left < size && q.less(left, best) {
			best = left
		}

		if right < size && q.less(right, best) {
			best = right
		}

		// If best is not the current node, swap and continue
		if best != index {
			q.heap[index], q.heap[best] = q.heap[best], q.heap[index]
			index = best
		} else {
			break
		}
	}
}

// ValidateHeap checks if the heap property is maintained
// Useful for debugging and testing
func (q *TermQueue) ValidateHeap() bool {
	size := len(q.heap)
	for i := 0; i < size; i++ {
		left := 2*i + 1
		right := 2*i + 2

		if left < size && q.less(left, i) {
			return false
		}

		if right < size && q.less(right, i) {
			return false
		}
	}

	return true
}
