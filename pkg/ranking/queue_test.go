/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: queue_test.go
Description: Tests for the scored term queue.
*/

package ranking_test

import (
	"testing"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/ranking"
	"github.com/stretchr/testify/assert"
)

// TestTermQueueOperations tests ordering by score and lexicographic ties
func TestTermQueueOperations(t *testing.T) {
	queue := ranking.NewTermQueue(4)

	// Test empty queue
	assert.True(t, queue.IsEmpty())
	_, ok := queue.Get()
	assert.False(t, ok)

	queue.Put(ranking.ScoredTerm{Term: "wolf", Score: 0.5})
	queue.Put(ranking.ScoredTerm{Term: "cat", Score: 0.9})
	queue.Put(ranking.ScoredTerm{Term: "dog", Score: 0.5})
	queue.Put(ranking.ScoredTerm{Term: "ant", Score: 0.1})

	assert.Equal(t, 4, queue.Size())
	assert.True(t, queue.ValidateHeap())

	best, ok := queue.Peek()
	assert.True(t, ok)
	assert.Equal(t, core.Term("ant"), best.Term)

	assert.Equal(t, []core.Term{"ant", "dog", "wolf", "cat"}, queue.Drain())
	assert.True(t, queue.IsEmpty())
}
