package ch

const maxUnpackDepth = 200

// unpackPath expands a sequence of overlay nodes into original-graph nodes.
func (idx *Index) unpackPath(overlay []uint32) []uint32 {
	if len(overlay) < 2 {
		return overlay
	}

	result := []uint32{overlay[0]}
	for i := 0; i+1 < len(overlay); i++ {
		unpacked := idx.unpackHop(overlay[i], overlay[i+1])
		// Skip first node (already in result) to avoid duplication.
		if len(unpacked) > 1 {
			result = append(result, unpacked[1:]...)
		}
	}
	return result
}

// unpackHop iteratively unpacks a single overlay hop from→to into a sequence
// of original-graph nodes. Uses an explicit stack to avoid recursion.
func (idx *Index) unpackHop(from, to uint32) []uint32 {
	type item struct {
		from, to uint32
		depth    int
	}

	stack := []item{{from, to, 0}}
	var result []uint32

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.depth > maxUnpackDepth {
			continue // safety bound
		}

		middle := idx.findMiddle(it.from, it.to)
		if middle < 0 {
			if len(result) == 0 || result[len(result)-1] != it.from {
				result = append(result, it.from)
			}
			result = append(result, it.to)
			continue
		}

		m := uint32(middle)
		// Right half first so the left half is processed first (LIFO).
		stack = append(stack, item{m, it.to, it.depth + 1})
		stack = append(stack, item{it.from, m, it.depth + 1})
	}

	return result
}

// findMiddle returns the node bypassed by the overlay arc from→to, or -1 if
// the arc is original. The arc lives in Fwd at `from` when from ranks lower,
// otherwise reversed in Bwd at `to`.
func (idx *Index) findMiddle(from, to uint32) int32 {
	if idx.Rank[from] < idx.Rank[to] {
		if a := idx.Fwd.find(from, to); a != noNode {
			return idx.Fwd.Middle[a]
		}
		return -1
	}
	if a := idx.Bwd.find(to, from); a != noNode {
		return idx.Bwd.Middle[a]
	}
	return -1
}
