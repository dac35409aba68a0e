package heap

// findFit locates a free block of at least asize bytes. Small requests
// (asize <= smallThreshold) try the small list first so they do not
// fragment the large region; if the small list has no fit, or the
// request was large to begin with, the large list is scanned.
func (h *Heap) findFit(asize int) (int, bool) {
	if asize <= smallThreshold {
		if bp, ok := h.scanList(h.smallRoot, asize); ok {
			return bp, true
		}
	}

	return h.scanList(h.largeRoot, asize)
}

// scanList walks a free list head to tail, first fit.
func (h *Heap) scanList(root, asize int) (int, bool) {
	for bp := root; bp != 0; bp = h.getNext(bp) {
		if h.blockSize(bp) >= asize {
			return bp, true
		}
	}

	return 0, false
}

// place carves asize bytes out of the free block at bp, splitting off
// and re-listing the remainder if it would be large enough to hold a
// block of its own, or consuming the whole block otherwise.
func (h *Heap) place(bp, asize int) {
	csize := h.blockSize(bp)

	if csize-asize >= minBlockSize {
		newbp := bp + asize

		// The tail remainder inherits bp's exact list position: same
		// neighbors, same root if bp was the root. Patching links in
		// place avoids an unlink+insert round trip, and leaves every
		// invariant a reinsert would have preserved just as true:
		// the remainder is still reachable from its region's root,
		// and still correctly bucketed by region.
		prev := h.getPrev(bp)
		next := h.getNext(bp)

		h.setPrev(newbp, prev)
		h.setNext(newbp, next)

		if prev != 0 {
			h.setNext(prev, newbp)
		} else {
			*h.rootFor(bp) = newbp
		}

		if next != 0 {
			h.setPrev(next, newbp)
		}

		h.stamp(bp, asize, 1)
		h.stamp(newbp, csize-asize, 0)

		return
	}

	h.unlink(bp)
	h.stamp(bp, csize, 1)
}
