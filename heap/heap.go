package heap

import "github.com/segheap/segheap/memlib"

// Heap is a single allocator instance bound to one memlib.Provider. It
// carries no package-level state: every field an Allocate/Free/Reallocate
// call needs lives here, so a process can run as many independent heaps
// as it has providers for. Heap is not safe for concurrent use by
// multiple goroutines; wrap one in Guarded for that.
type Heap struct {
	provider memlib.Provider
	mem      []byte

	heapLo       int
	interludeOff int
	smallRoot    int
	largeRoot    int
	initializing bool
}

// New brings up a fresh heap over provider: a leading alignment pad, a
// prologue sentinel, an initial small region, the interlude sentinel that
// permanently separates the regions, and an initial large region,
// followed by the ever-advancing epilogue sentinel.
func New(provider memlib.Provider) (*Heap, error) {
	h := &Heap{
		provider:     provider,
		mem:          provider.Bytes(),
		initializing: true,
	}

	base, ok := provider.Sbrk(4 * wsize)
	if !ok {
		return nil, errProviderExhausted(4 * wsize)
	}

	putWord(h.mem, base, 0)                      // alignment pad
	putWord(h.mem, base+wsize, pack(dsize, 1))   // prologue header
	putWord(h.mem, base+2*wsize, pack(dsize, 1)) // prologue footer
	putWord(h.mem, base+3*wsize, pack(0, 1))     // provisional epilogue, overwritten by the first extend below

	h.heapLo = base + 2*wsize

	smallWords := (chunkSize * smallRegionNumerator / smallRegionDenominator) / wsize

	smallBp, ok := h.extendHeap(smallWords)
	if !ok {
		return nil, errProviderExhausted(smallWords * wsize)
	}

	// Carve the interlude sentinel out of the small region's tail: shrink
	// the free block by one double word and stamp that space as a
	// permanently allocated, zero-payload block, exactly like the
	// prologue and epilogue. Neither free list ever walks across it, so
	// the two regions can never coalesce into one another.
	smallSize := h.blockSize(smallBp)
	interludeSize := smallSize - dsize
	h.stamp(smallBp, interludeSize, 0)

	h.interludeOff = h.nextBlock(smallBp)
	h.stamp(h.interludeOff, dsize, 1)

	h.smallRoot = smallBp
	h.setPrev(smallBp, 0)
	h.setNext(smallBp, 0)

	largeWords := (chunkSize - chunkSize*smallRegionNumerator/smallRegionDenominator) / wsize

	largeBp, ok := h.extendHeap(largeWords)
	if !ok {
		return nil, errProviderExhausted(largeWords * wsize)
	}

	h.largeRoot = largeBp
	h.setPrev(largeBp, 0)
	h.setNext(largeBp, 0)

	h.initializing = false

	return h, nil
}

// adjustedSize converts a caller-requested payload size into the actual
// block size the allocator will carve out: header+footer overhead,
// rounded up to the alignment unit, with a floor large enough to hold the
// free-list link words a block needs once it is freed.
func adjustedSize(size int) int {
	if size <= dsize {
		return minBlockSize
	}

	return dsize * ((size + overhead + (dsize - 1)) / dsize)
}

// Allocate reserves a block of at least size payload bytes and returns
// its block pointer. The heap grows by extending the provider when no
// free list has a fit.
func (h *Heap) Allocate(size int) (int, error) {
	if size <= 0 {
		return 0, errInvalidSize(size)
	}

	asize := adjustedSize(size)

	if bp, ok := h.findFit(asize); ok {
		h.place(bp, asize)

		return bp, nil
	}

	extendWords := max(asize, chunkSize) / wsize

	bp, ok := h.extendHeap(extendWords)
	if !ok {
		return 0, errProviderExhausted(extendWords * wsize)
	}

	h.place(bp, asize)

	return bp, nil
}

// Free releases a previously allocated block, coalescing it with any
// free neighbors.
func (h *Heap) Free(bp int) error {
	if err := h.checkPointer(bp); err != nil {
		return err
	}

	if h.blockAlloc(bp) == 0 {
		return errDoubleFree(bp)
	}

	size := h.blockSize(bp)
	h.stamp(bp, size, 0)
	h.coalesce(bp)

	return nil
}

// Reallocate resizes the block at bp to hold size payload bytes,
// returning its (possibly new) block pointer. A size of 0 frees bp and
// returns 0. Three cases, tried in order: shrink or grow in place (case
// A), grow by merging with an immediately following free block (case B),
// or relocate via a fresh Allocate, copy, and Free (case C).
func (h *Heap) Reallocate(bp, size int) (int, error) {
	if bp == 0 {
		return h.Allocate(size)
	}

	if err := h.checkPointer(bp); err != nil {
		return 0, err
	}

	if h.blockAlloc(bp) == 0 {
		return 0, errAlreadyFree(bp)
	}

	if size <= 0 {
		return 0, h.Free(bp)
	}

	asize := adjustedSize(size)
	csize := h.blockSize(bp)

	if asize <= csize {
		// Case A: already fits. Keep a little extra slack beyond asize
		// so an immediately following grow-back doesn't re-split the
		// same block; case B doesn't need this because it has just
		// absorbed a whole free neighbor and has room to spare already.
		h.reallocSplit(bp, csize, asize+reallocInPlaceSlack)

		return bp, nil
	}

	next := h.nextBlock(bp)
	if h.blockAlloc(next) == 0 && csize+h.blockSize(next) >= asize {
		merged := csize + h.blockSize(next)
		h.unlink(next)
		h.stamp(bp, merged, 1)
		h.reallocSplit(bp, merged, asize)

		return bp, nil
	}

	newbp, err := h.Allocate(size)
	if err != nil {
		return 0, err
	}

	n := csize - overhead
	if n > size {
		n = size
	}

	copy(h.mem[newbp:newbp+n], h.mem[bp:bp+n])

	if err := h.Free(bp); err != nil {
		return 0, err
	}

	return newbp, nil
}

// reallocSplit keeps the first keep bytes of an asize-or-larger
// already-allocated block of total size csize, freeing the remainder
// when it is large enough to stand on its own as a block.
func (h *Heap) reallocSplit(bp, csize, keep int) {
	if keep > csize {
		keep = csize
	}

	if csize-keep < minBlockSize {
		h.stamp(bp, csize, 1)

		return
	}

	remainder := bp + keep
	h.stamp(bp, keep, 1)
	h.stamp(remainder, csize-keep, 0)
	h.coalesce(remainder)
}

// checkPointer reports whether bp could possibly be a live block pointer
// this heap handed out: inside the granted range and not a sentinel.
func (h *Heap) checkPointer(bp int) error {
	if bp <= h.heapLo || bp >= h.provider.Hi() || bp == h.interludeOff {
		return errOutOfRange(bp)
	}

	return nil
}

// PayloadSize returns the number of usable bytes in the block at bp,
// excluding header and footer overhead.
func (h *Heap) PayloadSize(bp int) int {
	return h.blockSize(bp) - overhead
}

// Fill overwrites every payload byte of the allocated block at bp with b,
// a trace-replay convenience for planting and later checking patterns
// without exposing the heap's backing slice to callers.
func (h *Heap) Fill(bp int, b byte) error {
	if err := h.checkPointer(bp); err != nil {
		return err
	}

	if h.blockAlloc(bp) == 0 {
		return errAlreadyFree(bp)
	}

	n := h.PayloadSize(bp)
	for i := 0; i < n; i++ {
		h.mem[bp+i] = b
	}

	return nil
}

// TeamInfo identifies the implementation, mirroring the malloc-lab
// convention of a driver printing who wrote the allocator under test.
type TeamInfo struct {
	Name    string
	Members []string
}

// Team returns this allocator's identifying information.
func (h *Heap) Team() TeamInfo {
	return TeamInfo{
		Name:    "segheap",
		Members: []string{"segregated-fit boundary-tag allocator"},
	}
}
