package datastructure

import "golang.org/x/exp/constraints"

type PriorityQueueNode[T constraints.Ordered] struct {
	Rank int32
	Item T
}

// MinHeap with decrease-key. Ties on Rank settle the lower item first so
// paths are reproducible across runs.
type MinHeap[T constraints.Ordered] struct {
	heap []PriorityQueueNode[T]
	pos  map[T]int
}

func NewMinHeap[T constraints.Ordered]() *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]PriorityQueueNode[T], 0),
		pos:  make(map[T]int),
	}
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) less(i, j int) bool {
	if h.heap[i].Rank != h.heap[j].Rank {
		return h.heap[i].Rank < h.heap[j].Rank
	}
	return h.heap[i].Item < h.heap[j].Item
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].Item] = i
	h.pos[h.heap[j].Item] = j
}

func (h *MinHeap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *MinHeap[T]) down(i int) {
	n := len(h.heap)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *MinHeap[T]) Insert(node PriorityQueueNode[T]) {
	h.heap = append(h.heap, node)
	h.pos[node.Item] = len(h.heap) - 1
	h.up(len(h.heap) - 1)
}

func (h *MinHeap[T]) GetMin() (PriorityQueueNode[T], bool) {
	if len(h.heap) == 0 {
		return PriorityQueueNode[T]{}, false
	}
	return h.heap[0], true
}

func (h *MinHeap[T]) ExtractMin() (PriorityQueueNode[T], bool) {
	if len(h.heap) == 0 {
		return PriorityQueueNode[T]{}, false
	}
	min := h.heap[0]
	last := len(h.heap) - 1
	h.swap(0, last)
	h.heap = h.heap[:last]
	delete(h.pos, min.Item)
	if len(h.heap) > 0 {
		h.down(0)
	}
	return min, true
}

// DecreaseKey lowers the rank of an existing item, or inserts it when
// absent.
func (h *MinHeap[T]) DecreaseKey(node PriorityQueueNode[T]) {
	i, ok := h.pos[node.Item]
	if !ok {
		h.Insert(node)
		return
	}
	if node.Rank >= h.heap[i].Rank {
		return
	}
	h.heap[i].Rank = node.Rank
	h.up(i)
}

func (h *MinHeap[T]) Contains(item T) bool {
	_, ok := h.pos[item]
	return ok
}

func (h *MinHeap[T]) Clear() {
	h.heap = h.heap[:0]
	for k := range h.pos {
		delete(h.pos, k)
	}
}
