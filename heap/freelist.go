package heap

// Free blocks thread two link words through the start of their payload:
// offset 0 is the successor, offset wsize is the predecessor. 0 means
// "no block", valid because offset 0 is inside the leading pad word and
// is never a block pointer.

func (h *Heap) getNext(bp int) int { return int(getWord(h.mem, bp)) }

func (h *Heap) getPrev(bp int) int { return int(getWord(h.mem, bp+wsize)) }

func (h *Heap) setNext(bp, v int) { putWord(h.mem, bp, blockWord(v)) }

func (h *Heap) setPrev(bp, v int) { putWord(h.mem, bp+wsize, blockWord(v)) }

// link makes a and b adjacent in a free list: a.next = b, b.prev = a.
// Either side may be 0, in which case only the non-zero link is written.
func (h *Heap) link(a, b int) {
	if a != 0 {
		h.setNext(a, b)
	}

	if b != 0 {
		h.setPrev(b, a)
	}
}

// isSmallRegion reports whether an address lies in the small region,
// determined purely by position relative to the interlude, never by the
// block's own size.
func (h *Heap) isSmallRegion(bp int) bool { return bp < h.interludeOff }

// rootFor returns a pointer to the list root that owns bp's region.
func (h *Heap) rootFor(bp int) *int {
	if h.isSmallRegion(bp) {
		return &h.smallRoot
	}

	return &h.largeRoot
}

// insertAtHead threads bp onto the head of its region's free list.
func (h *Heap) insertAtHead(bp int) {
	root := h.rootFor(bp)
	old := *root

	h.setPrev(bp, 0)
	h.setNext(bp, old)

	if old != 0 {
		h.setPrev(old, bp)
	}

	*root = bp
}

// unlink removes bp from whichever free list it is currently threaded
// into. bp must currently be a free block reachable from its region's
// root; unlink does not touch bp's own header/footer or size.
func (h *Heap) unlink(bp int) {
	root := h.rootFor(bp)
	prev := h.getPrev(bp)
	next := h.getNext(bp)

	switch {
	case prev == 0 && next != 0:
		*root = next
		h.setPrev(next, 0)
	case prev != 0 && next == 0:
		h.setNext(prev, 0)
	case prev != 0 && next != 0:
		h.link(prev, next)
	default: // prev == 0 && next == 0
		*root = 0
	}
}
