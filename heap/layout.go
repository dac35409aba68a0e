package heap

import "encoding/binary"

// A blockWord is the packed (size, alloc) value stored in a header or
// footer, or a block-pointer value stored in a free-list link. All are
// one word (wsize bytes) wide and little-endian on the wire.
type blockWord = uint32

// pack combines a size and an allocated bit into a header/footer word.
// size must already be a multiple of dsize; alloc must be 0 or 1.
func pack(size int, alloc int) blockWord {
	return blockWord(size) | blockWord(alloc)
}

// sizeOf extracts the size field, masking off the low alignment bits.
func sizeOf(w blockWord) int {
	return int(w &^ 0x7)
}

// allocOf extracts the allocated bit.
func allocOf(w blockWord) int {
	return int(w & 0x1)
}

// getWord reads a word at absolute offset off in mem.
func getWord(mem []byte, off int) blockWord {
	return binary.LittleEndian.Uint32(mem[off : off+4])
}

// putWord writes a word at absolute offset off in mem.
func putWord(mem []byte, off int, v blockWord) {
	binary.LittleEndian.PutUint32(mem[off:off+4], v)
}

// headerOff returns the absolute offset of bp's header word.
func headerOff(bp int) int { return bp - wsize }

// footerOff returns the absolute offset of bp's footer word, which
// requires having already read bp's size from its header.
func footerOff(bp, size int) int { return bp + size - 2*wsize }

// header reads the header word of the block at bp.
func (h *Heap) header(bp int) blockWord { return getWord(h.mem, headerOff(bp)) }

// footer reads the footer word of the block at bp.
func (h *Heap) footer(bp int) blockWord {
	return getWord(h.mem, footerOff(bp, sizeOf(h.header(bp))))
}

// setHeader writes bp's header word.
func (h *Heap) setHeader(bp int, w blockWord) { putWord(h.mem, headerOff(bp), w) }

// setFooterSized writes bp's footer word, given the block's current size.
func (h *Heap) setFooterSized(bp, size int, w blockWord) { putWord(h.mem, footerOff(bp, size), w) }

// setFooter writes bp's footer word using bp's own header for the size.
func (h *Heap) setFooter(bp int, w blockWord) {
	h.setFooterSized(bp, sizeOf(h.header(bp)), w)
}

// stamp writes an identical header and footer for a block, the only way
// blocks are ever written: invariant 1 (header == footer) holds by
// construction rather than by separate bookkeeping.
func (h *Heap) stamp(bp, size, alloc int) {
	w := pack(size, alloc)
	h.setHeader(bp, w)
	h.setFooterSized(bp, size, w)
}

// blockSize is the total size (header+payload+footer) of the block at bp.
func (h *Heap) blockSize(bp int) int { return sizeOf(h.header(bp)) }

// blockAlloc is the allocated bit of the block at bp.
func (h *Heap) blockAlloc(bp int) int { return allocOf(h.header(bp)) }

// nextBlock returns the block pointer of bp's successor in address order.
func (h *Heap) nextBlock(bp int) int { return bp + h.blockSize(bp) }

// prevBlock returns the block pointer of bp's predecessor in address
// order, found by reading the predecessor's footer just before bp.
func (h *Heap) prevBlock(bp int) int {
	prevSize := sizeOf(getWord(h.mem, bp-2*wsize))

	return bp - prevSize
}
