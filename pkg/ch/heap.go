package ch

// minHeap is a concrete-typed binary min-heap keyed by distance.
// Avoids the interface boxing of container/heap.
type minHeap struct {
	items []heapItem
}

type heapItem struct {
	node uint32
	dist uint32
	hops int
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node, dist uint32, hops int) {
	h.items = append(h.items, heapItem{node, dist, hops})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() heapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// PeekDist returns the smallest key, or InfWeight when empty.
func (h *minHeap) PeekDist() uint32 {
	if len(h.items) == 0 {
		return InfWeight
	}
	return h.items[0].dist
}

func (h *minHeap) Reset() {
	h.items = h.items[:0]
}

// siftUp uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *minHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}
