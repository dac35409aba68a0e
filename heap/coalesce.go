package heap

// coalesce merges the just-freed block at bp with any free neighbors,
// inserts the (possibly grown) result into its region's free list, and
// returns its final block pointer. bp must already have its header and
// footer written with the allocated bit cleared, and must not yet be
// threaded into any list.
//
// During New, the sentinels and list roots are not wired up yet, so
// coalesce is a no-op that hands bp straight back; New performs its own
// first list insertion manually once setup completes.
func (h *Heap) coalesce(bp int) int {
	if h.initializing {
		return bp
	}

	prevAlloc := allocOf(getWord(h.mem, bp-2*wsize))
	next := h.nextBlock(bp)
	nextAlloc := h.blockAlloc(next)
	size := h.blockSize(bp)

	switch {
	case prevAlloc == 1 && nextAlloc == 1:
		h.insertAtHead(bp)

		return bp

	case prevAlloc == 1 && nextAlloc == 0:
		h.unlink(next)
		size += h.blockSize(next)
		h.stamp(bp, size, 0)
		h.insertAtHead(bp)

		return bp

	case prevAlloc == 0 && nextAlloc == 1:
		prev := h.prevBlock(bp)
		h.unlink(prev)
		size += h.blockSize(prev)
		h.stamp(prev, size, 0)
		h.insertAtHead(prev)

		return prev

	default: // both neighbors free
		prev := h.prevBlock(bp)
		h.unlink(prev)
		h.unlink(next)
		size += h.blockSize(prev) + h.blockSize(next)
		h.stamp(prev, size, 0)
		h.insertAtHead(prev)

		return prev
	}
}
