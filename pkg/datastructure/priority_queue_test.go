package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinHeapOrdering(t *testing.T) {
	h := NewMinHeap[int32]()
	h.Insert(PriorityQueueNode[int32]{Rank: 30, Item: 3})
	h.Insert(PriorityQueueNode[int32]{Rank: 10, Item: 1})
	h.Insert(PriorityQueueNode[int32]{Rank: 20, Item: 2})

	first, ok := h.ExtractMin()
	assert.True(t, ok)
	assert.Equal(t, int32(1), first.Item)

	second, _ := h.ExtractMin()
	assert.Equal(t, int32(2), second.Item)

	third, _ := h.ExtractMin()
	assert.Equal(t, int32(3), third.Item)

	_, ok = h.ExtractMin()
	assert.False(t, ok)
}

// equal ranks must settle the lower id first so paths are reproducible
func TestMinHeapTieBreaksOnLowerID(t *testing.T) {
	h := NewMinHeap[int32]()
	h.Insert(PriorityQueueNode[int32]{Rank: 5, Item: 9})
	h.Insert(PriorityQueueNode[int32]{Rank: 5, Item: 2})
	h.Insert(PriorityQueueNode[int32]{Rank: 5, Item: 7})

	first, _ := h.ExtractMin()
	assert.Equal(t, int32(2), first.Item)
	second, _ := h.ExtractMin()
	assert.Equal(t, int32(7), second.Item)
	third, _ := h.ExtractMin()
	assert.Equal(t, int32(9), third.Item)
}

func TestMinHeapDecreaseKey(t *testing.T) {
	h := NewMinHeap[int32]()
	h.Insert(PriorityQueueNode[int32]{Rank: 50, Item: 1})
	h.Insert(PriorityQueueNode[int32]{Rank: 40, Item: 2})

	h.DecreaseKey(PriorityQueueNode[int32]{Rank: 10, Item: 1})

	first, _ := h.ExtractMin()
	assert.Equal(t, int32(1), first.Item)
	assert.Equal(t, int32(10), first.Rank)

	// decrease-key on an absent item inserts it
	h.DecreaseKey(PriorityQueueNode[int32]{Rank: 5, Item: 3})
	next, _ := h.ExtractMin()
	assert.Equal(t, int32(3), next.Item)
}

func TestMinHeapDecreaseKeyIgnoresLargerRank(t *testing.T) {
	h := NewMinHeap[int32]()
	h.Insert(PriorityQueueNode[int32]{Rank: 10, Item: 1})
	h.DecreaseKey(PriorityQueueNode[int32]{Rank: 99, Item: 1})

	node, _ := h.ExtractMin()
	assert.Equal(t, int32(10), node.Rank)
}
