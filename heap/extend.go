package heap

// extendHeap asks the provider for more bytes, stamps them as one new
// free block, re-stamps the epilogue just past it, and runs the
// coalescer over the new block before returning it. words is rounded up
// to an even count so the payload area stays 8-byte aligned.
func (h *Heap) extendHeap(words int) (int, bool) {
	if words%2 != 0 {
		words++
	}

	sizeBytes := words * wsize

	base, ok := h.provider.Sbrk(sizeBytes)
	if !ok {
		return 0, false
	}

	// base is the new block's bp directly: its header overlays the
	// wsize bytes that used to hold the previous epilogue header,
	// already granted by an earlier Sbrk call, so it is safe to
	// overwrite rather than needing a fresh grant.
	bp := base

	h.stamp(bp, sizeBytes, 0)

	epilogue := h.nextBlock(bp)
	h.setHeader(epilogue, pack(0, 1))

	return h.coalesce(bp), true
}
